package patient

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/strokecare/api/internal/platform/errs"
)

type mockRepo struct {
	records   map[string]*Record
	history   map[string][]*HistoryRecord
	nextID    int
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		records: map[string]*Record{},
		history: map[string][]*HistoryRecord{},
		nextID:  1,
	}
}

func (m *mockRepo) Create(_ context.Context, r *Record) error {
	if m.createErr != nil {
		return m.createErr
	}
	r.ID = strconv.Itoa(m.nextID)
	m.nextID++
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *mockRepo) FindByID(_ context.Context, id string) (*Record, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) FindAll(_ context.Context, f Filter) ([]*Record, error) {
	var out []*Record
	for _, r := range m.records {
		if f.RiskLevel != "" && r.RiskLevel != f.RiskLevel {
			continue
		}
		if f.Gender != "" && r.Gender != f.Gender {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepo) FindByDoctor(_ context.Context, doctorID string, f Filter) ([]*Record, error) {
	var out []*Record
	for _, r := range m.records {
		if r.AssignedDoctor == nil || *r.AssignedDoctor != doctorID {
			continue
		}
		if f.RiskLevel != "" && r.RiskLevel != f.RiskLevel {
			continue
		}
		if f.Gender != "" && r.Gender != f.Gender {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepo) FindByCreator(_ context.Context, userID string) ([]*Record, error) {
	var out []*Record
	for _, r := range m.records {
		if r.CreatedBy != nil && *r.CreatedBy == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, r *Record) error {
	if _, ok := m.records[r.ID]; !ok {
		return errs.ErrNotFound
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return errs.ErrNotFound
	}
	delete(m.records, id)
	delete(m.history, id)
	return nil
}

func (m *mockRepo) CountByRiskLevel(_ context.Context, level string) (int, error) {
	n := 0
	for _, r := range m.records {
		if r.RiskLevel == level {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) AddHistory(_ context.Context, h *HistoryRecord) error {
	h.ID = strconv.Itoa(m.nextID)
	m.nextID++
	h.CreatedAt = time.Now()
	m.history[h.PatientID] = append(m.history[h.PatientID], h)
	return nil
}

func (m *mockRepo) HistoryForPatient(_ context.Context, patientID string) ([]*HistoryRecord, error) {
	return m.history[patientID], nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, NewScorer(25, 50)), repo
}

func TestRegisterScoresRecord(t *testing.T) {
	svc, _ := newTestService()

	a := baseline()
	a.Age = 67
	a.Hypertension = 1
	a.AvgGlucoseLevel = 145
	a.BMI = 28.1
	a.SmokingStatus = "Formerly smoked"

	rec, err := svc.Register(context.Background(), a, nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected id assigned")
	}
	if rec.StrokeRisk != 73 {
		t.Errorf("stroke_risk = %d, want 73", rec.StrokeRisk)
	}
	if rec.RiskLevel != RiskHigh {
		t.Errorf("risk_level = %q, want %q", rec.RiskLevel, RiskHigh)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc, repo := newTestService()

	a := baseline()
	a.Age = 150
	a.BMI = 5

	_, err := svc.Register(context.Background(), a, nil, nil)
	var verr *errs.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Errorf("problems = %d, want 2", len(verr.Fields))
	}
	if len(repo.records) != 0 {
		t.Error("invalid record must not be persisted")
	}
}

func TestPatchMedicalFieldRescores(t *testing.T) {
	svc, _ := newTestService()

	rec, err := svc.Register(context.Background(), baseline(), nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.StrokeRisk != 0 {
		t.Fatalf("baseline risk = %d, want 0", rec.StrokeRisk)
	}

	updated, changed, err := svc.Patch(context.Background(), rec.ID, map[string]interface{}{
		"hypertension":      float64(1),
		"avg_glucose_level": float64(160),
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if !changed {
		t.Error("expected risk change to be reported")
	}
	if updated.StrokeRisk != 40 {
		t.Errorf("stroke_risk = %d, want 40", updated.StrokeRisk)
	}
	if updated.RiskLevel != RiskMedium {
		t.Errorf("risk_level = %q, want %q", updated.RiskLevel, RiskMedium)
	}
}

func TestPatchIgnoresUnknownAndForbiddenFields(t *testing.T) {
	svc, _ := newTestService()

	rec, err := svc.Register(context.Background(), baseline(), nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	updated, changed, err := svc.Patch(context.Background(), rec.ID, map[string]interface{}{
		"stroke_risk":  float64(99),
		"risk_level":   "high",
		"no_such_key":  "x",
		"ever_married": "Yes",
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if changed {
		t.Error("non-medical patch must not report a risk change")
	}
	if updated.StrokeRisk != 0 || updated.RiskLevel != RiskLow {
		t.Errorf("derived fields overwritten: %d/%q", updated.StrokeRisk, updated.RiskLevel)
	}
	if updated.EverMarried != "Yes" {
		t.Error("allowlisted field was not applied")
	}
}

func TestPatchRejectsInvalidMerge(t *testing.T) {
	svc, _ := newTestService()

	rec, err := svc.Register(context.Background(), baseline(), nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, err = svc.Patch(context.Background(), rec.ID, map[string]interface{}{
		"age": float64(200),
	})
	var verr *errs.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	stored, _ := svc.Get(context.Background(), rec.ID)
	if stored.Age != rec.Age {
		t.Error("failed patch must not change the stored record")
	}
}

func TestListForDoctorFiltered(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	doctor := "42"

	high := baseline()
	high.Age = 70
	high.Hypertension = 1
	high.Stroke = 1
	if _, err := svc.Register(ctx, high, nil, &doctor); err != nil {
		t.Fatalf("Register: %v", err)
	}
	low := baseline()
	if _, err := svc.Register(ctx, low, nil, &doctor); err != nil {
		t.Fatalf("Register: %v", err)
	}
	other := baseline()
	other.Age = 70
	other.Hypertension = 1
	other.Stroke = 1
	otherDoctor := "99"
	if _, err := svc.Register(ctx, other, nil, &otherDoctor); err != nil {
		t.Fatalf("Register: %v", err)
	}

	all, err := svc.ListForDoctor(ctx, doctor, Filter{})
	if err != nil {
		t.Fatalf("ListForDoctor: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered list = %d records, want 2", len(all))
	}

	got, err := svc.ListForDoctor(ctx, doctor, Filter{RiskLevel: RiskHigh})
	if err != nil {
		t.Fatalf("ListForDoctor: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("filtered list = %d records, want 1", len(got))
	}
	if got[0].RiskLevel != RiskHigh {
		t.Errorf("risk_level = %q, want %q", got[0].RiskLevel, RiskHigh)
	}
	if got[0].AssignedDoctor == nil || *got[0].AssignedDoctor != doctor {
		t.Error("filtered list leaked another doctor's record")
	}
}

func TestPredictStateless(t *testing.T) {
	svc, repo := newTestService()

	a := baseline()
	a.Age = 45
	a.AvgGlucoseLevel = 95
	a.BMI = 26.5

	pred, err := svc.Predict(a)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Score != 5 || pred.Level != RiskLow {
		t.Errorf("got %d/%q, want 5/low", pred.Score, pred.Level)
	}
	if len(pred.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
	if len(repo.records) != 0 {
		t.Error("prediction must not persist a record")
	}
}

func TestHistoryRequiresPatient(t *testing.T) {
	svc, _ := newTestService()

	err := svc.AddHistory(context.Background(), &HistoryRecord{
		PatientID:   "42",
		RecordType:  "diagnosis",
		Description: "routine check",
	})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec, err := svc.Register(context.Background(), baseline(), nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	h := &HistoryRecord{PatientID: rec.ID, RecordType: "diagnosis", Description: "routine check"}
	if err := svc.AddHistory(context.Background(), h); err != nil {
		t.Fatalf("AddHistory: %v", err)
	}

	got, err := svc.History(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("history entries = %d, want 1", len(got))
	}
}
