package patient

import (
	"context"
	"fmt"
)

// Service owns patient-record business rules. Every write path revalidates
// the medical attributes and rescoring happens here, never in handlers or
// repositories.
type Service struct {
	repo   Repository
	scorer *Scorer
}

func NewService(repo Repository, scorer *Scorer) *Service {
	return &Service{repo: repo, scorer: scorer}
}

func (s *Service) Scorer() *Scorer { return s.scorer }

// Register validates, scores and persists a new patient record.
func (s *Service) Register(ctx context.Context, a Attributes, createdBy, assignedDoctor *string) (*Record, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	score, level := s.scorer.Evaluate(a)
	rec := &Record{
		Gender:          a.Gender,
		Age:             a.Age,
		Hypertension:    a.Hypertension,
		HeartDisease:    a.HeartDisease,
		EverMarried:     a.EverMarried,
		WorkType:        a.WorkType,
		ResidenceType:   a.ResidenceType,
		AvgGlucoseLevel: a.AvgGlucoseLevel,
		BMI:             a.BMI,
		SmokingStatus:   a.SmokingStatus,
		Stroke:          a.Stroke,
		StrokeRisk:      score,
		RiskLevel:       level,
		CreatedBy:       createdBy,
		AssignedDoctor:  assignedDoctor,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Record, error) {
	return s.repo.FindAll(ctx, f)
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID string, f Filter) ([]*Record, error) {
	return s.repo.FindByDoctor(ctx, doctorID, f)
}

func (s *Service) ListForCreator(ctx context.Context, userID string) ([]*Record, error) {
	return s.repo.FindByCreator(ctx, userID)
}

// medicalFields are the patchable inputs that feed the risk score. Any
// patch touching one of them triggers a full rescore of the merged record.
var medicalFields = map[string]bool{
	"age": true, "hypertension": true, "heart_disease": true,
	"avg_glucose_level": true, "bmi": true, "smoking_status": true, "stroke": true,
}

// Patch applies a partial update. Only allowlisted fields are applied and
// unknown keys are ignored. The second return reports whether the risk
// score changed as a result.
func (s *Service) Patch(ctx context.Context, id string, fields map[string]interface{}) (*Record, bool, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	rescore := false
	for key, val := range fields {
		if medicalFields[key] {
			rescore = true
		}
		switch key {
		case "gender":
			setString(&rec.Gender, val)
		case "age":
			setInt(&rec.Age, val)
		case "hypertension":
			setInt(&rec.Hypertension, val)
		case "heart_disease":
			setInt(&rec.HeartDisease, val)
		case "ever_married":
			setString(&rec.EverMarried, val)
		case "work_type":
			setString(&rec.WorkType, val)
		case "residence_type":
			setString(&rec.ResidenceType, val)
		case "avg_glucose_level":
			setFloat(&rec.AvgGlucoseLevel, val)
		case "bmi":
			setFloat(&rec.BMI, val)
		case "smoking_status":
			setString(&rec.SmokingStatus, val)
		case "stroke":
			setInt(&rec.Stroke, val)
		case "assigned_doctor_id":
			if str, ok := val.(string); ok {
				if str == "" {
					rec.AssignedDoctor = nil
				} else {
					rec.AssignedDoctor = &str
				}
			}
		}
	}

	if err := rec.attributes().Validate(); err != nil {
		return nil, false, err
	}

	riskChanged := false
	if rescore {
		prev := rec.StrokeRisk
		rec.StrokeRisk, rec.RiskLevel = s.scorer.Evaluate(rec.attributes())
		riskChanged = rec.StrokeRisk != prev
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, false, err
	}
	return rec, riskChanged, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) CountByRiskLevel(ctx context.Context, level string) (int, error) {
	return s.repo.CountByRiskLevel(ctx, level)
}

// Prediction is the outcome of a stateless risk assessment.
type Prediction struct {
	Score           int      `json:"risk_score"`
	Level           string   `json:"risk_level"`
	Recommendations []string `json:"recommendations"`
}

// Predict scores the attributes without persisting anything.
func (s *Service) Predict(a Attributes) (*Prediction, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	score, level := s.scorer.Evaluate(a)
	return &Prediction{
		Score:           score,
		Level:           level,
		Recommendations: Recommendations(level),
	}, nil
}

// AddHistory appends a medical-history entry after confirming the patient
// exists.
func (s *Service) AddHistory(ctx context.Context, h *HistoryRecord) error {
	if _, err := s.repo.FindByID(ctx, h.PatientID); err != nil {
		return err
	}
	return s.repo.AddHistory(ctx, h)
}

func (s *Service) History(ctx context.Context, patientID string) ([]*HistoryRecord, error) {
	if _, err := s.repo.FindByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.HistoryForPatient(ctx, patientID)
}

// JSON numbers arrive as float64; the setters coerce them onto the typed
// fields and ignore values of the wrong kind.
func setString(dst *string, val interface{}) {
	if s, ok := val.(string); ok {
		*dst = s
	}
}

func setInt(dst *int, val interface{}) {
	switch v := val.(type) {
	case float64:
		*dst = int(v)
	case int:
		*dst = v
	}
}

func setFloat(dst *float64, val interface{}) {
	switch v := val.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	}
}
