// Package admin aggregates cross-domain dashboard statistics.
package admin

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/strokecare/api/internal/domain/appointment"
	"github.com/strokecare/api/internal/domain/identity"
	"github.com/strokecare/api/internal/domain/patient"
)

// Stats is the admin dashboard snapshot.
type Stats struct {
	TotalPatients      int    `json:"total_patients"`
	TotalDoctors       int    `json:"total_doctors"`
	TotalAdmins        int    `json:"total_admins"`
	HighRiskPatients   int    `json:"high_risk_patients"`
	MediumRiskPatients int    `json:"medium_risk_patients"`
	LowRiskPatients    int    `json:"low_risk_patients"`
	TodaysAppointments int    `json:"todays_appointments"`
	GeneratedAt        string `json:"generated_at"`
}

// Handler serves the dashboard endpoint. The route group must already
// enforce the admin role.
type Handler struct {
	users    *identity.Service
	patients *patient.Service
	appts    *appointment.Service
}

func NewHandler(users *identity.Service, patients *patient.Service, appts *appointment.Service) *Handler {
	return &Handler{users: users, patients: patients, appts: appts}
}

// RegisterRoutes wires the dashboard.
//
//	GET /admin/stats - Aggregate counters
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/admin/stats", h.Stats)
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now()
	stats := Stats{GeneratedAt: now.Format(time.RFC3339)}

	var err error
	if stats.TotalPatients, err = h.users.CountByRole(ctx, identity.RolePatient); err != nil {
		return err
	}
	if stats.TotalDoctors, err = h.users.CountByRole(ctx, identity.RoleDoctor); err != nil {
		return err
	}
	if stats.TotalAdmins, err = h.users.CountByRole(ctx, identity.RoleAdmin); err != nil {
		return err
	}
	if stats.HighRiskPatients, err = h.patients.CountByRiskLevel(ctx, patient.RiskHigh); err != nil {
		return err
	}
	if stats.MediumRiskPatients, err = h.patients.CountByRiskLevel(ctx, patient.RiskMedium); err != nil {
		return err
	}
	if stats.LowRiskPatients, err = h.patients.CountByRiskLevel(ctx, patient.RiskLow); err != nil {
		return err
	}
	if stats.TodaysAppointments, err = h.appts.CountOnDate(ctx, now.Format(appointment.DateLayout)); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}
