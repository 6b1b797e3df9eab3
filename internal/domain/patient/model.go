package patient

import (
	"time"

	"github.com/strokecare/api/internal/platform/errs"
)

// Record is a patient record. StrokeRisk and RiskLevel are derived fields:
// recomputed whenever a medical input changes, never set by callers.
type Record struct {
	ID              string    `db:"id" json:"id" bson:"-"`
	Gender          string    `db:"gender" json:"gender" bson:"gender"`
	Age             int       `db:"age" json:"age" bson:"age"`
	Hypertension    int       `db:"hypertension" json:"hypertension" bson:"hypertension"`
	HeartDisease    int       `db:"heart_disease" json:"heart_disease" bson:"heart_disease"`
	EverMarried     string    `db:"ever_married" json:"ever_married" bson:"ever_married"`
	WorkType        string    `db:"work_type" json:"work_type" bson:"work_type"`
	ResidenceType   string    `db:"residence_type" json:"residence_type" bson:"residence_type"`
	AvgGlucoseLevel float64   `db:"avg_glucose_level" json:"avg_glucose_level" bson:"avg_glucose_level"`
	BMI             float64   `db:"bmi" json:"bmi" bson:"bmi"`
	SmokingStatus   string    `db:"smoking_status" json:"smoking_status" bson:"smoking_status"`
	Stroke          int       `db:"stroke" json:"stroke" bson:"stroke"`
	StrokeRisk      int       `db:"stroke_risk" json:"stroke_risk" bson:"stroke_risk"`
	RiskLevel       string    `db:"risk_level" json:"risk_level" bson:"risk_level"`
	CreatedBy       *string   `db:"created_by" json:"created_by,omitempty" bson:"created_by,omitempty"`
	AssignedDoctor  *string   `db:"assigned_doctor_id" json:"assigned_doctor_id,omitempty" bson:"assigned_doctor_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// HistoryRecord is one entry of a patient's medical history. Append-only,
// owned exclusively by its patient.
type HistoryRecord struct {
	ID          string    `db:"id" json:"id" bson:"-"`
	PatientID   string    `db:"patient_id" json:"patient_id" bson:"patient_id"`
	RecordType  string    `db:"record_type" json:"record_type" bson:"record_type"`
	Description string    `db:"description" json:"description" bson:"description"`
	DoctorID    *string   `db:"doctor_id" json:"doctor_id,omitempty" bson:"doctor_id,omitempty"`
	DoctorName  *string   `db:"doctor_name" json:"doctor_name,omitempty" bson:"doctor_name,omitempty"`
	Medications *string   `db:"medications" json:"medications,omitempty" bson:"medications,omitempty"`
	Notes       *string   `db:"notes" json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at" bson:"created_at"`
}

// Filter narrows list queries. Empty fields mean "no constraint".
type Filter struct {
	RiskLevel string
	Gender    string
}

// Attributes is the medical input to the risk scorer: the subset of a
// record that feeds the score, as a standalone value so the stateless
// prediction endpoint can score without persisting.
type Attributes struct {
	Gender          string  `json:"gender"`
	Age             int     `json:"age"`
	Hypertension    int     `json:"hypertension"`
	HeartDisease    int     `json:"heart_disease"`
	EverMarried     string  `json:"ever_married"`
	WorkType        string  `json:"work_type"`
	ResidenceType   string  `json:"residence_type"`
	AvgGlucoseLevel float64 `json:"avg_glucose_level"`
	BMI             float64 `json:"bmi"`
	SmokingStatus   string  `json:"smoking_status"`
	Stroke          int     `json:"stroke"`
}

func (r *Record) attributes() Attributes {
	return Attributes{
		Gender:          r.Gender,
		Age:             r.Age,
		Hypertension:    r.Hypertension,
		HeartDisease:    r.HeartDisease,
		EverMarried:     r.EverMarried,
		WorkType:        r.WorkType,
		ResidenceType:   r.ResidenceType,
		AvgGlucoseLevel: r.AvgGlucoseLevel,
		BMI:             r.BMI,
		SmokingStatus:   r.SmokingStatus,
		Stroke:          r.Stroke,
	}
}

var (
	validGenders = map[string]bool{"Male": true, "Female": true, "Other": true}
	validWork    = map[string]bool{
		"Private": true, "Self-employed": true, "Govt_job": true,
		"Children": true, "Never_worked": true,
	}
	validSmoking = map[string]bool{
		"Never smoked": true, "Smokes": true, "Formerly smoked": true, "Unknown": true,
	}
)

// Validate checks the documented input domain. All problems are reported
// at once, before any persistence attempt.
func (a Attributes) Validate() error {
	var problems []string
	if a.Age < 0 || a.Age > 120 {
		problems = append(problems, "Age must be between 0 and 120")
	}
	if a.BMI < 10 || a.BMI > 60 {
		problems = append(problems, "BMI must be between 10 and 60")
	}
	if a.AvgGlucoseLevel < 50 || a.AvgGlucoseLevel > 300 {
		problems = append(problems, "Glucose level must be between 50 and 300")
	}
	if a.Hypertension != 0 && a.Hypertension != 1 {
		problems = append(problems, "Hypertension must be 0 or 1")
	}
	if a.HeartDisease != 0 && a.HeartDisease != 1 {
		problems = append(problems, "Heart disease must be 0 or 1")
	}
	if a.Stroke != 0 && a.Stroke != 1 {
		problems = append(problems, "Stroke must be 0 or 1")
	}
	if !validGenders[a.Gender] {
		problems = append(problems, "Gender must be one of: Male, Female, Other")
	}
	if !validWork[a.WorkType] {
		problems = append(problems, "Work type must be one of: Private, Self-employed, Govt_job, Children, Never_worked")
	}
	if !validSmoking[a.SmokingStatus] {
		problems = append(problems, "Smoking status must be one of: Never smoked, Smokes, Formerly smoked, Unknown")
	}
	if len(problems) > 0 {
		return errs.Validation(problems...)
	}
	return nil
}
