package identity

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/strokecare/api/internal/domain/securitylog"
	"github.com/strokecare/api/internal/platform/auth"
	"github.com/strokecare/api/internal/platform/errs"
)

// auditRecorder captures appended entries so tests can assert on the
// audit trail.
type auditRecorder struct {
	entries []*securitylog.Entry
}

func (a *auditRecorder) Append(_ context.Context, e *securitylog.Entry) error {
	e.ID = strconv.Itoa(len(a.entries) + 1)
	e.CreatedAt = time.Now()
	a.entries = append(a.entries, e)
	return nil
}

func (a *auditRecorder) Recent(_ context.Context, _ int, _ securitylog.Filter) ([]*securitylog.Entry, error) {
	return a.entries, nil
}

func (a *auditRecorder) FailedLogins(_ context.Context, _ string, _ time.Time) ([]*securitylog.Entry, error) {
	return nil, nil
}

func (a *auditRecorder) ActivityForUser(_ context.Context, _ string, _ int) ([]*securitylog.Entry, error) {
	return nil, nil
}

func (a *auditRecorder) ListSince(_ context.Context, _ time.Time) ([]*securitylog.Entry, error) {
	return a.entries, nil
}

func (a *auditRecorder) byType(eventType string) []*securitylog.Entry {
	var out []*securitylog.Entry
	for _, e := range a.entries {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newAuthFixture(t *testing.T, ttl time.Duration) (*AuthService, *Service, *auditRecorder) {
	t.Helper()
	users := NewService(newMockRepo())
	recorder := &auditRecorder{}
	audit := securitylog.NewService(recorder, zerolog.Nop())
	signer := auth.NewTokenSigner("test-secret", ttl)
	return NewAuthService(users, signer, audit), users, recorder
}

func TestAuthenticate(t *testing.T) {
	authSvc, users, recorder := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	u, err := users.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	token, got, err := authSvc.Authenticate(ctx, "jdoe", "Str0ngPass", RequestMeta{IPAddress: "10.1.1.1"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if token == "" || got.ID != u.ID {
		t.Errorf("unexpected result: token=%q user=%v", token, got)
	}

	fresh, _ := users.Get(ctx, u.ID)
	if fresh.LastLogin == nil {
		t.Error("last_login not touched")
	}

	logins := recorder.byType(securitylog.EventLogin)
	if len(logins) != 1 {
		t.Fatalf("login audit entries = %d, want 1", len(logins))
	}
	if logins[0].IPAddress == nil || *logins[0].IPAddress != "10.1.1.1" {
		t.Error("client address missing from audit entry")
	}
}

func TestAuthenticateFailuresIndistinguishable(t *testing.T) {
	authSvc, users, recorder := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	if _, err := users.Create(ctx, validCreate()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, _, errUnknown := authSvc.Authenticate(ctx, "ghost", "Str0ngPass", RequestMeta{})
	_, _, errWrongPw := authSvc.Authenticate(ctx, "jdoe", "WrongPass1", RequestMeta{})

	if !errors.Is(errUnknown, errs.ErrInvalidCredentials) || !errors.Is(errWrongPw, errs.ErrInvalidCredentials) {
		t.Fatalf("got %v / %v, want ErrInvalidCredentials for both", errUnknown, errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Error("failure messages must not reveal whether the username exists")
	}

	failures := recorder.byType(securitylog.EventFailedLogin)
	if len(failures) != 2 {
		t.Errorf("failed_login entries = %d, want exactly one per attempt", len(failures))
	}
}

func TestAuthenticateDeactivated(t *testing.T) {
	authSvc, users, _ := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	u, err := users.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	u.IsActive = false
	if err := users.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, _, err = authSvc.Authenticate(ctx, "jdoe", "Str0ngPass", RequestMeta{})
	if !errors.Is(err, errs.ErrDeactivated) {
		t.Fatalf("expected ErrDeactivated, got %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	authSvc, users, _ := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	u, err := users.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	token, _, err := authSvc.Authenticate(ctx, "jdoe", "Str0ngPass", RequestMeta{})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	p, err := authSvc.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if p.ID != u.ID || p.Role != RolePatient {
		t.Errorf("principal = %+v", p)
	}

	if _, err := authSvc.VerifyToken(ctx, token+"tampered"); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("tampered token: expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyTokenExpired(t *testing.T) {
	// A signer with a negative lifetime issues already-expired tokens.
	authSvc, users, _ := newAuthFixture(t, -time.Minute)
	ctx := context.Background()

	if _, err := users.Create(ctx, validCreate()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	token, _, err := authSvc.Authenticate(ctx, "jdoe", "Str0ngPass", RequestMeta{})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if _, err := authSvc.VerifyToken(ctx, token); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyTokenRejectsDeletedAndDeactivated(t *testing.T) {
	authSvc, users, _ := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	u, err := users.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	token, _, err := authSvc.Authenticate(ctx, "jdoe", "Str0ngPass", RequestMeta{})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	u.IsActive = false
	if err := users.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := authSvc.VerifyToken(ctx, token); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("deactivated: expected ErrTokenInvalid, got %v", err)
	}

	if err := users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := authSvc.VerifyToken(ctx, token); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("deleted: expected ErrTokenInvalid, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	authSvc, users, recorder := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	u, err := users.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = authSvc.ChangePassword(ctx, u.ID, "WrongPass1", "N3wPassword", RequestMeta{})
	if !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("wrong current password: expected ErrInvalidCredentials, got %v", err)
	}

	if err := authSvc.ChangePassword(ctx, u.ID, "Str0ngPass", "N3wPassword", RequestMeta{}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, _, err := authSvc.Authenticate(ctx, "jdoe", "N3wPassword", RequestMeta{}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if len(recorder.byType(securitylog.EventPasswordChanged)) != 1 {
		t.Error("expected one password_changed audit entry")
	}
}
