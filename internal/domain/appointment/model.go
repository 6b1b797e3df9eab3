package appointment

import "time"

// Urgency tiers and lifecycle states. Transitions only move forward:
// scheduled appointments can complete or cancel, nothing reopens.
const (
	UrgencyRoutine   = "routine"
	UrgencyUrgent    = "urgent"
	UrgencyEmergency = "emergency"

	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// DateLayout and TimeLayout are the wire formats for scheduling fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

func ValidUrgency(u string) bool {
	return u == UrgencyRoutine || u == UrgencyUrgent || u == UrgencyEmergency
}

// Appointment links a patient account to a doctor account by opaque id.
// PatientName and DoctorName are resolved at read time, not stored, so a
// renamed or deleted account never leaves stale display data behind.
type Appointment struct {
	ID          string    `db:"id" json:"id" bson:"-"`
	PatientID   string    `db:"patient_id" json:"patient_id" bson:"patient_id"`
	DoctorID    string    `db:"doctor_id" json:"doctor_id" bson:"doctor_id"`
	PatientName string    `db:"-" json:"patient_name" bson:"-"`
	DoctorName  string    `db:"-" json:"doctor_name" bson:"-"`
	Date        string    `db:"appointment_date" json:"appointment_date" bson:"appointment_date"`
	Time        string    `db:"appointment_time" json:"appointment_time" bson:"appointment_time"`
	Reason      string    `db:"reason" json:"reason" bson:"reason"`
	Urgency     string    `db:"urgency" json:"urgency" bson:"urgency"`
	Status      string    `db:"status" json:"status" bson:"status"`
	Notes       *string   `db:"notes" json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at" bson:"updated_at"`
}
