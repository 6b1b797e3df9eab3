package appointment

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/strokecare/api/internal/platform/errs"
)

type mockRepo struct {
	appts  map[string]*Appointment
	nextID int
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: map[string]*Appointment{}, nextID: 1}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = strconv.Itoa(m.nextID)
	m.nextID++
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) FindByID(_ context.Context, id string) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) FindAll(_ context.Context) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepo) FindByPatient(_ context.Context, patientID string) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) FindByDoctor(_ context.Context, doctorID string) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return errs.ErrNotFound
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.appts[id]; !ok {
		return errs.ErrNotFound
	}
	delete(m.appts, id)
	return nil
}

func (m *mockRepo) CountOnDate(_ context.Context, date string) (int, error) {
	n := 0
	for _, a := range m.appts {
		if a.Date == date && a.Status != StatusCancelled {
			n++
		}
	}
	return n, nil
}

type mockDirectory map[string][2]string

func (d mockDirectory) Lookup(_ context.Context, userID string) (string, string, error) {
	entry, ok := d[userID]
	if !ok {
		return "", "", errs.ErrNotFound
	}
	return entry[0], entry[1], nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	dir := mockDirectory{
		"p1": {"Jane Doe", "patient"},
		"d1": {"Gregory House", "doctor"},
	}
	return NewService(repo, dir), repo
}

func validBooking() BookParams {
	return BookParams{
		PatientID: "p1",
		DoctorID:  "d1",
		Date:      time.Now().AddDate(0, 0, 7).Format(DateLayout),
		Time:      "10:30",
		Reason:    "follow-up",
		Urgency:   UrgencyRoutine,
	}
}

func TestBook(t *testing.T) {
	svc, _ := newTestService()

	appt, err := svc.Book(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Errorf("status = %q, want scheduled", appt.Status)
	}
	if appt.PatientName != "Jane Doe" || appt.DoctorName != "Gregory House" {
		t.Errorf("names not resolved: %q / %q", appt.PatientName, appt.DoctorName)
	}
}

func TestBookDateBoundary(t *testing.T) {
	svc, _ := newTestService()

	p := validBooking()
	p.Date = time.Now().AddDate(0, 0, -1).Format(DateLayout)
	if _, err := svc.Book(context.Background(), p); !errors.Is(err, errs.ErrInvalidDate) {
		t.Fatalf("yesterday: expected ErrInvalidDate, got %v", err)
	}

	p.Date = time.Now().Format(DateLayout)
	if _, err := svc.Book(context.Background(), p); err != nil {
		t.Fatalf("today must be bookable: %v", err)
	}
}

func TestBookValidatesInput(t *testing.T) {
	svc, _ := newTestService()

	p := validBooking()
	p.Date = "07/15/2026"
	p.Urgency = "asap"
	p.Reason = ""

	_, err := svc.Book(context.Background(), p)
	verr, ok := errs.AsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 3 {
		t.Errorf("problems = %d, want 3: %v", len(verr.Fields), verr.Fields)
	}
}

func TestBookUnknownDoctor(t *testing.T) {
	svc, _ := newTestService()

	p := validBooking()
	p.DoctorID = "nope"
	if _, err := svc.Book(context.Background(), p); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// A patient account is not a valid doctor either.
	p.DoctorID = "p1"
	if _, err := svc.Book(context.Background(), p); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-doctor, got %v", err)
	}
}

func TestCancelIdempotent(t *testing.T) {
	svc, _ := newTestService()

	appt, err := svc.Book(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	first, err := svc.Cancel(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if first.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", first.Status)
	}

	second, err := svc.Cancel(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("second cancel must be a no-op: %v", err)
	}
	if second.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", second.Status)
	}
}

func TestCompleteThenCancelRejected(t *testing.T) {
	svc, _ := newTestService()

	appt, err := svc.Book(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	notes := "patient recovering well"
	done, err := svc.Complete(context.Background(), appt.ID, &notes)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != StatusCompleted || done.Notes == nil || *done.Notes != notes {
		t.Errorf("completion not recorded: %+v", done)
	}

	if _, err := svc.Cancel(context.Background(), appt.ID); err == nil {
		t.Fatal("cancelling a completed appointment must fail")
	}
}

func TestReschedule(t *testing.T) {
	svc, _ := newTestService()

	appt, err := svc.Book(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	past := time.Now().AddDate(0, 0, -2).Format(DateLayout)
	if _, err := svc.Reschedule(context.Background(), appt.ID, past, "09:00"); !errors.Is(err, errs.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	future := time.Now().AddDate(0, 0, 14).Format(DateLayout)
	moved, err := svc.Reschedule(context.Background(), appt.ID, future, "09:00")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.Date != future || moved.Time != "09:00" {
		t.Errorf("slot not updated: %s %s", moved.Date, moved.Time)
	}

	if _, err := svc.Cancel(context.Background(), appt.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.Reschedule(context.Background(), appt.ID, future, "09:30"); err == nil {
		t.Fatal("rescheduling a cancelled appointment must fail")
	}
}

func TestNameResolutionFallsBackToUnknown(t *testing.T) {
	repo := newMockRepo()
	dir := mockDirectory{"d1": {"Gregory House", "doctor"}, "p1": {"Jane Doe", "patient"}}
	svc := NewService(repo, dir)

	appt, err := svc.Book(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	delete(dir, "p1")
	got, err := svc.Get(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PatientName != "Unknown" {
		t.Errorf("patient name = %q, want Unknown", got.PatientName)
	}
	if got.DoctorName != "Gregory House" {
		t.Errorf("doctor name = %q, want resolved", got.DoctorName)
	}
}
