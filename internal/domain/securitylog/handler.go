package securitylog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/strokecare/api/internal/platform/auth"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000

	defaultWindowHours = 24
	maxWindowHours     = 24 * 30
)

// Handler exposes the audit-log query endpoints. Everything here is
// admin-only except user activity, which an account may read about itself.
type Handler struct {
	logs *Service
}

func NewHandler(logs *Service) *Handler {
	return &Handler{logs: logs}
}

// RegisterRoutes wires the endpoints. adminOnly must already enforce the
// admin role; authed only enforces a session.
//
//	GET /security/logs                    - Recent entries with filters
//	GET /security/logs/failed-logins      - Failed logins grouped by address
//	GET /security/logs/stats              - Window summary
//	GET /security/logs/user-activity/:id  - Per-account trail (admin or self)
func (h *Handler) RegisterRoutes(adminOnly, authed *echo.Group) {
	adminOnly.GET("/security/logs", h.Logs)
	adminOnly.GET("/security/logs/failed-logins", h.FailedLogins)
	adminOnly.GET("/security/logs/stats", h.Stats)
	authed.GET("/security/logs/user-activity/:id", h.UserActivity)
}

// Logs handles GET /security/logs.
func (h *Handler) Logs(c echo.Context) error {
	f := Filter{
		EventType: c.QueryParam("event_type"),
		UserID:    c.QueryParam("user_id"),
		Severity:  c.QueryParam("severity"),
		Status:    c.QueryParam("status"),
	}
	if hours := intParam(c, "hours", 0, maxWindowHours); hours > 0 {
		f.Since = time.Now().Add(-time.Duration(hours) * time.Hour)
	}

	limit := intParam(c, "limit", defaultLogLimit, maxLogLimit)
	entries, err := h.logs.Recent(c.Request().Context(), limit, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"logs":  entries,
		"count": len(entries),
	})
}

// FailedLogins handles GET /security/logs/failed-logins. Entries are grouped by
// source address; addresses at or past the suspicion threshold are called
// out separately.
func (h *Handler) FailedLogins(c echo.Context) error {
	hours := intParam(c, "hours", defaultWindowHours, maxWindowHours)
	window := time.Duration(hours) * time.Hour

	entries, err := h.logs.FailedLogins(c.Request().Context(), c.QueryParam("username"), window)
	if err != nil {
		return err
	}

	byIP := make(map[string][]*Entry)
	for _, e := range entries {
		ip := "unknown"
		if e.IPAddress != nil {
			ip = *e.IPAddress
		}
		byIP[ip] = append(byIP[ip], e)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"time_window_hours": hours,
		"total_failed":      len(entries),
		"by_ip":             byIP,
		"suspicious_ips":    SuspiciousIPs(entries),
	})
}

// Stats handles GET /security/logs/stats.
func (h *Handler) Stats(c echo.Context) error {
	hours := intParam(c, "hours", defaultWindowHours, maxWindowHours)
	stats, err := h.logs.Stats(c.Request().Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// UserActivity handles GET /security/logs/user-activity/:id. Non-admins may
// only read their own trail.
func (h *Handler) UserActivity(c echo.Context) error {
	p := auth.MustPrincipal(c)
	userID := c.Param("id")
	if p.Role != "admin" && p.ID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	}

	limit := intParam(c, "limit", defaultLogLimit, maxLogLimit)
	entries, err := h.logs.ActivityForUser(c.Request().Context(), userID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"activity": entries,
		"count":    len(entries),
	})
}

func intParam(c echo.Context, name string, def, max int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
