package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/strokecare/api/internal/domain/securitylog"
	"github.com/strokecare/api/internal/platform/auth"
	"github.com/strokecare/api/pkg/pagination"
)

// Handler exposes authentication and account-management endpoints.
type Handler struct {
	users *Service
	auth  *AuthService
	audit *securitylog.Service
}

func NewHandler(users *Service, authService *AuthService, audit *securitylog.Service) *Handler {
	return &Handler{users: users, auth: authService, audit: audit}
}

// RegisterAuthRoutes wires the /auth endpoints. authMW guards the
// session-bound ones; registration, login and the reset flow stay public.
//
//	POST /auth/register         - Self-register a patient account
//	POST /auth/login            - Exchange credentials for a token
//	GET  /auth/me               - Current account
//	POST /auth/logout           - Audit the logout
//	POST /auth/change-password  - Rotate own password
//	POST /auth/forgot-password  - Request a reset token
//	POST /auth/reset-password   - Redeem a reset token
func (h *Handler) RegisterAuthRoutes(g *echo.Group, authMW echo.MiddlewareFunc) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/forgot-password", h.ForgotPassword)
	g.POST("/reset-password", h.ResetPassword)

	g.GET("/me", h.Me, authMW)
	g.POST("/logout", h.Logout, authMW)
	g.POST("/change-password", h.ChangePassword, authMW)
}

// RegisterDirectoryRoutes wires the doctor roster, readable by any
// authenticated account. Booking needs a doctor id, so every role may
// browse it.
//
//	GET /doctors  - Active doctor accounts with contact fields
func (h *Handler) RegisterDirectoryRoutes(g *echo.Group) {
	g.GET("/doctors", h.Doctors)
}

type doctorSummary struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Specialization *string `json:"specialization"`
	Email          string  `json:"email"`
	Phone          *string `json:"phone"`
}

// Doctors handles GET /doctors. Deactivated accounts are left out so a
// patient cannot book against a doctor who no longer practices here.
func (h *Handler) Doctors(c echo.Context) error {
	users, err := h.users.List(c.Request().Context(), RoleDoctor)
	if err != nil {
		return err
	}

	doctors := make([]doctorSummary, 0, len(users))
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		doctors = append(doctors, doctorSummary{
			ID:             u.ID,
			Username:       u.Username,
			FirstName:      u.FirstName,
			LastName:       u.LastName,
			Specialization: u.Specialization,
			Email:          u.Email,
			Phone:          u.Phone,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"doctors": doctors})
}

// RegisterAdminRoutes wires account management. The group is expected to
// already enforce authentication and the admin role.
//
//	POST   /admin/users      - Create an account with any role
//	GET    /admin/users      - List accounts, optionally by role
//	GET    /admin/users/:id  - Fetch one account
//	PUT    /admin/users/:id  - Update profile, role or active flag
//	DELETE /admin/users/:id  - Remove an account
func (h *Handler) RegisterAdminRoutes(g *echo.Group) {
	g.POST("/admin/users", h.AdminCreate)
	g.GET("/admin/users", h.List)
	g.GET("/admin/users/:id", h.GetUser)
	g.PUT("/admin/users/:id", h.UpdateUser)
	g.DELETE("/admin/users/:id", h.DeleteUser)
}

type registerRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
	LicenseNumber  string `json:"license_number"`
}

func (r registerRequest) params() CreateParams {
	return CreateParams{
		Username:       r.Username,
		Email:          r.Email,
		Password:       r.Password,
		Role:           r.Role,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Phone:          r.Phone,
		Specialization: r.Specialization,
		LicenseNumber:  r.LicenseNumber,
	}
}

// Register handles POST /auth/register. Self-registration never grants the
// admin role; that path goes through account management.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Role == "" {
		req.Role = RolePatient
	}
	if req.Role == RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "cannot self-register as admin")
	}

	u, err := h.users.Create(c.Request().Context(), req.params())
	if err != nil {
		return err
	}

	h.audit.Log(c.Request().Context(), securitylog.Entry{
		EventType:        securitylog.EventUserCreated,
		EventDescription: "Account self-registered: " + u.Username,
		UserID:           &u.ID,
		Username:         &u.Username,
		UserRole:         &u.Role,
		IPAddress:        optional(c.RealIP()),
		UserAgent:        optional(c.Request().UserAgent()),
	})

	return c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	token, u, err := h.auth.Authenticate(c.Request().Context(), req.Username, req.Password, requestMeta(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  u,
	})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c echo.Context) error {
	p := auth.MustPrincipal(c)
	u, err := h.users.Get(c.Request().Context(), p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// Logout handles POST /auth/logout. Tokens are not revocable; this exists
// for the audit trail.
func (h *Handler) Logout(c echo.Context) error {
	h.auth.Logout(c.Request().Context(), auth.MustPrincipal(c), requestMeta(c))
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles POST /auth/change-password.
func (h *Handler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p := auth.MustPrincipal(c)
	err := h.auth.ChangePassword(c.Request().Context(), p.ID, req.CurrentPassword, req.NewPassword, requestMeta(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password changed"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /auth/forgot-password. The response is the
// same whether or not the email exists, so the endpoint cannot be used to
// probe for accounts. Without an outbound mailer the token is returned in
// the body for the reset client to use.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp := map[string]string{"message": "if the email exists, a reset token has been issued"}

	token, err := h.users.RequestPasswordReset(c.Request().Context(), req.Email)
	if err == nil {
		resp["reset_token"] = token
	}
	return c.JSON(http.StatusOK, resp)
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	err := h.users.ResetPassword(c.Request().Context(), req.Token, req.NewPassword)
	if err != nil {
		return err
	}

	h.audit.Log(c.Request().Context(), securitylog.Entry{
		EventType:        securitylog.EventPasswordReset,
		EventDescription: "Password reset via token",
		IPAddress:        optional(c.RealIP()),
		UserAgent:        optional(c.Request().UserAgent()),
	})
	return c.JSON(http.StatusOK, map[string]string{"message": "password has been reset"})
}

// AdminCreate handles POST /admin/users.
func (h *Handler) AdminCreate(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, err := h.users.Create(c.Request().Context(), req.params())
	if err != nil {
		return err
	}

	actor := auth.MustPrincipal(c)
	h.audit.Log(c.Request().Context(), securitylog.Entry{
		EventType:        securitylog.EventUserCreated,
		EventDescription: "Account created by admin: " + u.Username,
		UserID:           &actor.ID,
		Username:         &actor.Username,
		UserRole:         &actor.Role,
		TargetUserID:     &u.ID,
		TargetUsername:   &u.Username,
		IPAddress:        optional(c.RealIP()),
		UserAgent:        optional(c.Request().UserAgent()),
	})
	return c.JSON(http.StatusCreated, u)
}

// List handles GET /admin/users.
func (h *Handler) List(c echo.Context) error {
	users, err := h.users.List(c.Request().Context(), c.QueryParam("role"))
	if err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	total := len(users)
	page := paginateUsers(users, pg)
	return c.JSON(http.StatusOK, pagination.NewResponse(page, total, pg.Limit, pg.Offset))
}

// GetUser handles GET /admin/users/:id.
func (h *Handler) GetUser(c echo.Context) error {
	u, err := h.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

type updateUserRequest struct {
	Email          *string `json:"email"`
	Role           *string `json:"role"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Phone          *string `json:"phone"`
	Specialization *string `json:"specialization"`
	LicenseNumber  *string `json:"license_number"`
	IsActive       *bool   `json:"is_active"`
}

// UpdateUser handles PUT /admin/users/:id. A role change is audited separately
// from a plain profile update.
func (h *Handler) UpdateUser(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	u, err := h.users.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	priorRole := u.Role
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Role != nil {
		if !ValidRole(*req.Role) {
			return echo.NewHTTPError(http.StatusBadRequest, "role must be admin, doctor, or patient")
		}
		u.Role = *req.Role
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.Specialization != nil {
		u.Specialization = req.Specialization
	}
	if req.LicenseNumber != nil {
		u.LicenseNumber = req.LicenseNumber
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}

	if err := h.users.Update(ctx, u); err != nil {
		return err
	}

	actor := auth.MustPrincipal(c)
	event := securitylog.EventUserUpdated
	desc := "Account updated: " + u.Username
	severity := securitylog.SeverityInfo
	if u.Role != priorRole {
		event = securitylog.EventRoleChanged
		desc = "Role changed for " + u.Username + ": " + priorRole + " -> " + u.Role
		severity = securitylog.SeverityWarning
	}
	h.audit.Log(ctx, securitylog.Entry{
		EventType:        event,
		EventDescription: desc,
		Severity:         severity,
		UserID:           &actor.ID,
		Username:         &actor.Username,
		UserRole:         &actor.Role,
		TargetUserID:     &u.ID,
		TargetUsername:   &u.Username,
		IPAddress:        optional(c.RealIP()),
		UserAgent:        optional(c.Request().UserAgent()),
	})
	return c.JSON(http.StatusOK, u)
}

// DeleteUser handles DELETE /admin/users/:id. Admins cannot delete themselves;
// the last admin lockout stays a deliberate non-check since another admin
// can always recreate the account.
func (h *Handler) DeleteUser(c echo.Context) error {
	actor := auth.MustPrincipal(c)
	id := c.Param("id")
	if id == actor.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot delete your own account")
	}

	ctx := c.Request().Context()
	target, err := h.users.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := h.users.Delete(ctx, id); err != nil {
		return err
	}

	h.audit.Log(ctx, securitylog.Entry{
		EventType:        securitylog.EventUserDeleted,
		EventDescription: "Account deleted: " + target.Username,
		Severity:         securitylog.SeverityWarning,
		UserID:           &actor.ID,
		Username:         &actor.Username,
		UserRole:         &actor.Role,
		TargetUserID:     &target.ID,
		TargetUsername:   &target.Username,
		IPAddress:        optional(c.RealIP()),
		UserAgent:        optional(c.Request().UserAgent()),
	})
	return c.JSON(http.StatusOK, map[string]string{"message": "user deleted"})
}

func requestMeta(c echo.Context) RequestMeta {
	return RequestMeta{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

func paginateUsers(users []*User, pg pagination.Params) []*User {
	if pg.Offset >= len(users) {
		return []*User{}
	}
	end := pg.Offset + pg.Limit
	if end > len(users) {
		end = len(users)
	}
	return users[pg.Offset:end]
}
