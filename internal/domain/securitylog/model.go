package securitylog

import (
	"time"
)

// Event types. The set is open: callers may log types not listed here.
const (
	EventLogin                = "login"
	EventLogout               = "logout"
	EventFailedLogin          = "failed_login"
	EventUserCreated          = "user_created"
	EventUserUpdated          = "user_updated"
	EventUserDeleted          = "user_deleted"
	EventPasswordChanged      = "password_changed"
	EventPasswordReset        = "password_reset"
	EventRoleChanged          = "role_changed"
	EventPatientAccessed      = "patient_accessed"
	EventPatientUpdated       = "patient_updated"
	EventPatientDeleted       = "patient_deleted"
	EventAppointmentCreated   = "appointment_created"
	EventAppointmentCancelled = "appointment_cancelled"
	EventDataExport           = "data_export"
)

// Statuses and severities.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusWarning = "warning"
	StatusError   = "error"

	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Entry is one security event. Immutable once written. Actor and target
// fields are snapshots, not references: no foreign keys, so entries
// survive the deletion of every identity they mention.
type Entry struct {
	ID               string    `db:"id" json:"id"`
	EventType        string    `db:"event_type" json:"event_type"`
	EventDescription string    `db:"event_description" json:"event_description"`
	UserID           *string   `db:"user_id" json:"user_id,omitempty"`
	Username         *string   `db:"username" json:"username,omitempty"`
	UserRole         *string   `db:"user_role" json:"user_role,omitempty"`
	TargetUserID     *string   `db:"target_user_id" json:"target_user_id,omitempty"`
	TargetUsername   *string   `db:"target_username" json:"target_username,omitempty"`
	TargetType       *string   `db:"target_type" json:"target_type,omitempty"`
	TargetID         *string   `db:"target_id" json:"target_id,omitempty"`
	IPAddress        *string   `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent        *string   `db:"user_agent" json:"user_agent,omitempty"`
	Status           string    `db:"status" json:"status"`
	Severity         string    `db:"severity" json:"severity"`
	AdditionalData   *string   `db:"additional_data" json:"additional_data,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Filter narrows Recent queries. Zero values mean "no constraint".
type Filter struct {
	EventType string
	UserID    string
	Severity  string
	Status    string
	Since     time.Time
}

// Stats summarizes a time window of the log.
type Stats struct {
	WindowHours      int            `json:"time_window_hours"`
	TotalEvents      int            `json:"total_events"`
	EventsByType     map[string]int `json:"events_by_type"`
	EventsBySeverity map[string]int `json:"events_by_severity"`
	FailedLogins     int            `json:"failed_logins"`
	SuspiciousIPs    []string       `json:"suspicious_ips"`
	CriticalEvents   []*Entry       `json:"critical_events"`
}
