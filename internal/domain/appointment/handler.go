package appointment

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/strokecare/api/internal/domain/identity"
	"github.com/strokecare/api/internal/domain/securitylog"
	"github.com/strokecare/api/internal/platform/auth"
	"github.com/strokecare/api/pkg/pagination"
)

// Handler exposes scheduling endpoints. Ownership is enforced here:
// patients only touch appointments where they are the patient, doctors
// where they are the doctor, admins everywhere.
type Handler struct {
	appts *Service
	audit *securitylog.Service
}

func NewHandler(appts *Service, audit *securitylog.Service) *Handler {
	return &Handler{appts: appts, audit: audit}
}

// RegisterRoutes wires the appointment endpoints onto an authenticated
// group.
//
//	POST /appointments/book            - Book
//	GET  /appointments                 - List, role-scoped
//	GET  /appointments/:id             - Fetch one
//	POST /appointments/:id/reschedule  - Move to a new future slot
//	POST /appointments/:id/cancel      - Cancel (idempotent)
//	POST /appointments/:id/complete    - Complete (doctor, admin)
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/appointments/book", h.Book)
	g.GET("/appointments", h.List)
	g.GET("/appointments/:id", h.Get)
	g.POST("/appointments/:id/reschedule", h.Reschedule)
	g.POST("/appointments/:id/cancel", h.Cancel)
	g.POST("/appointments/:id/complete", h.Complete, auth.RequireRole(identity.RoleDoctor))
}

type bookRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"appointment_date"`
	Time      string `json:"appointment_time"`
	Reason    string `json:"reason"`
	Urgency   string `json:"urgency"`
}

// Book handles POST /appointments/book. A patient always books for themselves;
// a doctor booking without a doctor_id becomes the doctor on the slot.
func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p := auth.MustPrincipal(c)
	switch p.Role {
	case identity.RolePatient:
		req.PatientID = p.ID
	case identity.RoleDoctor:
		if req.DoctorID == "" {
			req.DoctorID = p.ID
		}
	}

	appt, err := h.appts.Book(c.Request().Context(), BookParams{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		Time:      req.Time,
		Reason:    req.Reason,
		Urgency:   req.Urgency,
	})
	if err != nil {
		return err
	}

	h.audit.Log(c.Request().Context(), securitylog.Entry{
		EventType:        securitylog.EventAppointmentCreated,
		EventDescription: "Appointment booked for " + appt.Date + " " + appt.Time,
		UserID:           &p.ID,
		Username:         &p.Username,
		UserRole:         &p.Role,
		TargetType:       ptr("appointment"),
		TargetID:         &appt.ID,
		IPAddress:        ptr(c.RealIP()),
	})
	return c.JSON(http.StatusCreated, appt)
}

// List handles GET /appointments.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	p := auth.MustPrincipal(c)

	var (
		appts []*Appointment
		err   error
	)
	switch p.Role {
	case identity.RoleAdmin:
		appts, err = h.appts.ListAll(ctx)
	case identity.RoleDoctor:
		appts, err = h.appts.ListForDoctor(ctx, p.ID)
	default:
		appts, err = h.appts.ListForPatient(ctx, p.ID)
	}
	if err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	page := paginate(appts, pg)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"appointments": page,
		"count":        len(appts),
	})
}

// Get handles GET /appointments/:id.
func (h *Handler) Get(c echo.Context) error {
	appt, err := h.appts.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if err := owns(c, appt); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

type rescheduleRequest struct {
	Date string `json:"appointment_date"`
	Time string `json:"appointment_time"`
}

// Reschedule handles POST /appointments/:id/reschedule.
func (h *Handler) Reschedule(c echo.Context) error {
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	appt, err := h.appts.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := owns(c, appt); err != nil {
		return err
	}

	moved, err := h.appts.Reschedule(ctx, appt.ID, req.Date, req.Time)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, moved)
}

// Cancel handles POST /appointments/:id/cancel.
func (h *Handler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	appt, err := h.appts.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := owns(c, appt); err != nil {
		return err
	}

	cancelled, err := h.appts.Cancel(ctx, appt.ID)
	if err != nil {
		return err
	}

	p := auth.MustPrincipal(c)
	h.audit.Log(ctx, securitylog.Entry{
		EventType:        securitylog.EventAppointmentCancelled,
		EventDescription: "Appointment cancelled",
		UserID:           &p.ID,
		Username:         &p.Username,
		UserRole:         &p.Role,
		TargetType:       ptr("appointment"),
		TargetID:         &cancelled.ID,
		IPAddress:        ptr(c.RealIP()),
	})
	return c.JSON(http.StatusOK, cancelled)
}

type completeRequest struct {
	Notes *string `json:"notes"`
}

// Complete handles POST /appointments/:id/complete.
func (h *Handler) Complete(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	appt, err := h.appts.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := owns(c, appt); err != nil {
		return err
	}

	done, err := h.appts.Complete(ctx, appt.ID, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, done)
}

// owns rejects access to an appointment the principal is not a party to.
func owns(c echo.Context, appt *Appointment) error {
	p := auth.MustPrincipal(c)
	switch p.Role {
	case identity.RoleAdmin:
		return nil
	case identity.RoleDoctor:
		if appt.DoctorID == p.ID {
			return nil
		}
	default:
		if appt.PatientID == p.ID {
			return nil
		}
	}
	return echo.NewHTTPError(http.StatusForbidden, "access denied")
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func paginate(appts []*Appointment, pg pagination.Params) []*Appointment {
	if pg.Offset >= len(appts) {
		return []*Appointment{}
	}
	end := pg.Offset + pg.Limit
	if end > len(appts) {
		end = len(appts)
	}
	return appts[pg.Offset:end]
}
