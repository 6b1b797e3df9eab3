package analytics

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/strokecare/api/internal/domain/identity"
	"github.com/strokecare/api/internal/domain/patient"
	"github.com/strokecare/api/internal/platform/auth"
)

// Handler exposes population-level reporting. The summaries always cover
// every record, not a per-doctor slice.
type Handler struct {
	patients *patient.Service
}

func NewHandler(patients *patient.Service) *Handler {
	return &Handler{patients: patients}
}

// RegisterRoutes wires the reporting endpoints onto an authenticated group.
//
//	GET /analytics/dashboard-stats  - Population summary
//	GET /analytics/risk-factors     - Condition breakdown
//	GET /doctors/stats              - Doctor-facing summary (doctor, admin)
func (h *Handler) RegisterRoutes(authed *echo.Group) {
	authed.GET("/analytics/dashboard-stats", h.DashboardStats)
	authed.GET("/analytics/risk-factors", h.RiskFactors)
	authed.GET("/doctors/stats", h.DoctorStats, auth.RequireRole(identity.RoleDoctor))
}

// DashboardStats handles GET /analytics/dashboard-stats.
func (h *Handler) DashboardStats(c echo.Context) error {
	records, err := h.patients.List(c.Request().Context(), patient.Filter{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, BuildDashboard(records))
}

// RiskFactors handles GET /analytics/risk-factors.
func (h *Handler) RiskFactors(c echo.Context) error {
	records, err := h.patients.List(c.Request().Context(), patient.Filter{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, BuildRiskFactors(records))
}

// DoctorStats handles GET /doctors/stats.
func (h *Handler) DoctorStats(c echo.Context) error {
	records, err := h.patients.List(c.Request().Context(), patient.Filter{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"stats": BuildPracticeStats(records),
	})
}
