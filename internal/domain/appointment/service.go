package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/strokecare/api/internal/platform/errs"
)

// Directory resolves account ids to display names and roles. The identity
// service satisfies it through a thin adapter at wiring time.
type Directory interface {
	Lookup(ctx context.Context, userID string) (name, role string, err error)
}

// unknownName is shown when the referenced account no longer resolves.
const unknownName = "Unknown"

// Service owns scheduling rules. Date checks compare calendar days, not
// instants: booking for today is always allowed regardless of the hour.
type Service struct {
	repo Repository
	dir  Directory
}

func NewService(repo Repository, dir Directory) *Service {
	return &Service{repo: repo, dir: dir}
}

// BookParams is the input to Book. Urgency defaults to routine.
type BookParams struct {
	PatientID string
	DoctorID  string
	Date      string
	Time      string
	Reason    string
	Urgency   string
}

func (s *Service) Book(ctx context.Context, p BookParams) (*Appointment, error) {
	if p.Urgency == "" {
		p.Urgency = UrgencyRoutine
	}

	var problems []string
	if p.PatientID == "" {
		problems = append(problems, "patient_id is required")
	}
	if p.DoctorID == "" {
		problems = append(problems, "doctor_id is required")
	}
	if p.Reason == "" {
		problems = append(problems, "reason is required")
	}
	if !ValidUrgency(p.Urgency) {
		problems = append(problems, "urgency must be one of: routine, urgent, emergency")
	}
	if _, err := time.Parse(DateLayout, p.Date); err != nil {
		problems = append(problems, "appointment_date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(TimeLayout, p.Time); err != nil {
		problems = append(problems, "appointment_time must be HH:MM")
	}
	if len(problems) > 0 {
		return nil, errs.Validation(problems...)
	}

	if pastDate(p.Date) {
		return nil, errs.ErrInvalidDate
	}

	if _, role, err := s.dir.Lookup(ctx, p.DoctorID); err != nil || role != "doctor" {
		return nil, fmt.Errorf("doctor %s: %w", p.DoctorID, errs.ErrNotFound)
	}
	if _, _, err := s.dir.Lookup(ctx, p.PatientID); err != nil {
		return nil, fmt.Errorf("patient %s: %w", p.PatientID, errs.ErrNotFound)
	}

	appt := &Appointment{
		PatientID: p.PatientID,
		DoctorID:  p.DoctorID,
		Date:      p.Date,
		Time:      p.Time,
		Reason:    p.Reason,
		Urgency:   p.Urgency,
		Status:    StatusScheduled,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	s.resolveNames(ctx, appt)
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveNames(ctx, appt)
	return appt, nil
}

func (s *Service) ListAll(ctx context.Context) ([]*Appointment, error) {
	appts, err := s.repo.FindAll(ctx)
	return s.list(ctx, appts, err)
}

func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	appts, err := s.repo.FindByPatient(ctx, patientID)
	return s.list(ctx, appts, err)
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID string) ([]*Appointment, error) {
	appts, err := s.repo.FindByDoctor(ctx, doctorID)
	return s.list(ctx, appts, err)
}

func (s *Service) list(ctx context.Context, appts []*Appointment, err error) ([]*Appointment, error) {
	if err != nil {
		return nil, err
	}
	s.resolveNamesAll(ctx, appts)
	return appts, nil
}

// Reschedule moves a scheduled appointment to a new slot.
func (s *Service) Reschedule(ctx context.Context, id, date, tm string) (*Appointment, error) {
	var problems []string
	if _, err := time.Parse(DateLayout, date); err != nil {
		problems = append(problems, "appointment_date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(TimeLayout, tm); err != nil {
		problems = append(problems, "appointment_time must be HH:MM")
	}
	if len(problems) > 0 {
		return nil, errs.Validation(problems...)
	}
	if pastDate(date) {
		return nil, errs.ErrInvalidDate
	}

	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusScheduled {
		return nil, fmt.Errorf("cannot reschedule a %s appointment", appt.Status)
	}

	appt.Date = date
	appt.Time = tm
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.resolveNames(ctx, appt)
	return appt, nil
}

// Cancel marks the appointment cancelled. Cancelling an already-cancelled
// appointment is a no-op, not an error.
func (s *Service) Cancel(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		s.resolveNames(ctx, appt)
		return appt, nil
	}
	if appt.Status == StatusCompleted {
		return nil, fmt.Errorf("cannot cancel a completed appointment")
	}

	appt.Status = StatusCancelled
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.resolveNames(ctx, appt)
	return appt, nil
}

// Complete closes out a scheduled appointment, optionally recording notes.
func (s *Service) Complete(ctx context.Context, id string, notes *string) (*Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusScheduled {
		return nil, fmt.Errorf("cannot complete a %s appointment", appt.Status)
	}

	appt.Status = StatusCompleted
	if notes != nil {
		appt.Notes = notes
	}
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.resolveNames(ctx, appt)
	return appt, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) CountOnDate(ctx context.Context, date string) (int, error) {
	return s.repo.CountOnDate(ctx, date)
}

func (s *Service) resolveNames(ctx context.Context, appt *Appointment) {
	appt.PatientName = s.displayName(ctx, appt.PatientID)
	appt.DoctorName = s.displayName(ctx, appt.DoctorID)
}

func (s *Service) resolveNamesAll(ctx context.Context, appts []*Appointment) {
	// Lists routinely repeat the same doctor, so resolve each id once.
	cache := map[string]string{}
	for _, appt := range appts {
		for _, id := range []string{appt.PatientID, appt.DoctorID} {
			if _, ok := cache[id]; !ok {
				cache[id] = s.displayName(ctx, id)
			}
		}
		appt.PatientName = cache[appt.PatientID]
		appt.DoctorName = cache[appt.DoctorID]
	}
}

func (s *Service) displayName(ctx context.Context, userID string) string {
	name, _, err := s.dir.Lookup(ctx, userID)
	if err != nil || name == "" {
		return unknownName
	}
	return name
}

// pastDate reports whether the ISO date falls strictly before today.
func pastDate(date string) bool {
	return date < time.Now().Format(DateLayout)
}
