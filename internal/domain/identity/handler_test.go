package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/strokecare/api/internal/domain/securitylog"
	"github.com/strokecare/api/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *Service, *auditRecorder, *echo.Echo) {
	t.Helper()
	authSvc, users, recorder := newAuthFixture(t, time.Hour)
	h := NewHandler(users, authSvc, securitylog.NewService(recorder, zerolog.Nop()))
	return h, users, recorder, echo.New()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func asPrincipal(req *http.Request, p auth.Principal) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), p))
}

func TestHandler_Register_RejectsAdminRole(t *testing.T) {
	h, users, _, e := newTestHandler(t)

	body := `{"username":"boss","email":"boss@example.com","password":"Str0ngPass","role":"admin","first_name":"Big","last_name":"Boss"}`
	req := jsonRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
	if _, err := users.GetByUsername(context.Background(), "boss"); err == nil {
		t.Error("admin account must not be created through self-registration")
	}
}

func TestHandler_Login(t *testing.T) {
	h, users, _, e := newTestHandler(t)

	if _, err := users.Create(context.Background(), validCreate()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	body := `{"username":"jdoe","password":"Str0ngPass"}`
	req := jsonRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Token string `json:"token"`
		User  *User  `json:"user"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Token == "" {
		t.Error("expected a session token")
	}
	if resp.User == nil || resp.User.Username != "jdoe" {
		t.Error("expected the account in the response")
	}
}

func TestHandler_Doctors_ListsOnlyActive(t *testing.T) {
	h, users, _, e := newTestHandler(t)
	ctx := context.Background()

	specialty := "Neurology"
	active, err := users.Create(ctx, CreateParams{
		Username: "house", Email: "house@example.com", Password: "Str0ngPass",
		Role: RoleDoctor, FirstName: "Gregory", LastName: "House",
		Specialization: specialty,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	retired, err := users.Create(ctx, CreateParams{
		Username: "retired", Email: "retired@example.com", Password: "Str0ngPass",
		Role: RoleDoctor, FirstName: "Old", LastName: "Timer",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	retired.IsActive = false
	if err := users.Update(ctx, retired); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := users.Create(ctx, validCreate()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Doctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Doctors []doctorSummary `json:"doctors"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Doctors) != 1 {
		t.Fatalf("listed %d doctors, want 1", len(resp.Doctors))
	}
	if resp.Doctors[0].ID != active.ID {
		t.Errorf("listed %q, want the active doctor", resp.Doctors[0].Username)
	}
	if resp.Doctors[0].Specialization == nil || *resp.Doctors[0].Specialization != "Neurology" {
		t.Error("expected specialization in the roster")
	}
}

func TestHandler_DeleteUser_RejectsSelfDelete(t *testing.T) {
	h, users, _, e := newTestHandler(t)

	admin, err := users.Create(context.Background(), CreateParams{
		Username: "root", Email: "root@example.com", Password: "Str0ngPass",
		Role: RoleAdmin, FirstName: "Ada", LastName: "Admin",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := asPrincipal(
		httptest.NewRequest(http.MethodDelete, "/", nil),
		auth.Principal{ID: admin.ID, Username: admin.Username, Role: RoleAdmin},
	)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(admin.ID)

	err = h.DeleteUser(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if _, err := users.Get(context.Background(), admin.ID); err != nil {
		t.Error("account must survive a rejected self-delete")
	}
}
