package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/strokecare/api/internal/domain/identity"
	"github.com/strokecare/api/internal/domain/securitylog"
	"github.com/strokecare/api/internal/platform/auth"
	"github.com/strokecare/api/pkg/pagination"
)

// Handler exposes patient-record endpoints. List and read access is
// scoped by role: admins see everything, doctors their assigned records,
// patients only the records they created.
type Handler struct {
	patients *Service
	users    *identity.Service
	audit    *securitylog.Service
}

func NewHandler(patients *Service, users *identity.Service, audit *securitylog.Service) *Handler {
	return &Handler{patients: patients, users: users, audit: audit}
}

// RegisterRoutes wires the patient endpoints. public carries endpoints
// reachable without a session; authed already enforces one.
//
//	POST   /patients/self-register   - Combined account + record signup
//	POST   /patients/register        - Register a record (doctor, admin)
//	GET    /patients                 - List records, role-scoped
//	GET    /patients/:id             - Fetch one record
//	PUT    /patients/:id             - Partial update (doctor, admin)
//	DELETE /patients/:id             - Remove a record (admin)
//	GET    /patients/:id/medical-history  - History, newest first
//	POST   /patients/:id/medical-history  - Append history (doctor, admin)
//	POST   /patients/predict/stroke  - Stateless risk assessment
func (h *Handler) RegisterRoutes(public, authed *echo.Group) {
	public.POST("/patients/self-register", h.SelfRegister)

	authed.POST("/patients/register", h.Create, auth.RequireRole(identity.RoleDoctor))
	authed.GET("/patients", h.List)
	authed.GET("/patients/:id", h.Get)
	authed.PUT("/patients/:id", h.Update, auth.RequireRole(identity.RoleDoctor))
	authed.DELETE("/patients/:id", h.Delete, auth.RequireRole(identity.RoleAdmin))
	authed.GET("/patients/:id/medical-history", h.History)
	authed.POST("/patients/:id/medical-history", h.AddHistory, auth.RequireRole(identity.RoleDoctor))
	authed.POST("/patients/predict/stroke", h.Predict)
}

type createRequest struct {
	Attributes
	AssignedDoctorID *string `json:"assigned_doctor_id"`
}

// Create handles POST /patients/register.
func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p := auth.MustPrincipal(c)
	assigned := req.AssignedDoctorID
	if assigned == nil && p.Role == identity.RoleDoctor {
		doctorID := p.ID
		assigned = &doctorID
	}

	rec, err := h.patients.Register(c.Request().Context(), req.Attributes, &p.ID, assigned)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"patient_id":  rec.ID,
		"stroke_risk": rec.StrokeRisk,
		"risk_level":  rec.RiskLevel,
	})
}

type selfRegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Attributes
}

// SelfRegister handles POST /patients/self-register: one call creates a
// patient account and its medical record. If the record write fails the
// freshly created account is removed again, so a retry starts clean.
func (h *Handler) SelfRegister(c echo.Context) error {
	var req selfRegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	// Validate the medical half before touching the account store, so a
	// bad record never costs us a created-then-deleted account.
	if err := req.Attributes.Validate(); err != nil {
		return err
	}

	ctx := c.Request().Context()
	u, err := h.users.Create(ctx, identity.CreateParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Role:      identity.RolePatient,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return err
	}

	rec, err := h.patients.Register(ctx, req.Attributes, &u.ID, nil)
	if err != nil {
		_ = h.users.Delete(ctx, u.ID)
		return err
	}

	h.audit.Log(ctx, securitylog.Entry{
		EventType:        securitylog.EventUserCreated,
		EventDescription: "Patient self-registered with medical record: " + u.Username,
		UserID:           &u.ID,
		Username:         &u.Username,
		UserRole:         &u.Role,
		IPAddress:        strPtr(c.RealIP()),
		UserAgent:        strPtr(c.Request().UserAgent()),
	})

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"patient_id": rec.ID,
		"user_id":    u.ID,
		"status":     "pending_review",
	})
}

// List handles GET /patients.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	p := auth.MustPrincipal(c)

	f := Filter{
		RiskLevel: c.QueryParam("risk_level"),
		Gender:    c.QueryParam("gender"),
	}

	var (
		records []*Record
		err     error
	)
	switch p.Role {
	case identity.RoleAdmin:
		records, err = h.patients.List(ctx, f)
	case identity.RoleDoctor:
		records, err = h.patients.ListForDoctor(ctx, p.ID, f)
	default:
		records, err = h.patients.ListForCreator(ctx, p.ID)
	}
	if err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	page := paginateRecords(records, pg)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patients": page,
		"count":    len(records),
	})
}

// Get handles GET /patients/:id.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	rec, err := h.patients.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := h.canView(c, rec); err != nil {
		return err
	}

	p := auth.MustPrincipal(c)
	if p.Role != identity.RolePatient {
		h.audit.Log(ctx, securitylog.Entry{
			EventType:        securitylog.EventPatientAccessed,
			EventDescription: "Patient record accessed",
			UserID:           &p.ID,
			Username:         &p.Username,
			UserRole:         &p.Role,
			TargetType:       strPtr("patient"),
			TargetID:         &rec.ID,
			IPAddress:        strPtr(c.RealIP()),
		})
	}
	return c.JSON(http.StatusOK, rec)
}

// Update handles PUT /patients/:id.
func (h *Handler) Update(c echo.Context) error {
	var fields map[string]interface{}
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	rec, riskChanged, err := h.patients.Patch(ctx, c.Param("id"), fields)
	if err != nil {
		return err
	}

	p := auth.MustPrincipal(c)
	desc := "Patient record updated"
	if riskChanged {
		desc = "Patient record updated, risk score changed"
	}
	h.audit.Log(ctx, securitylog.Entry{
		EventType:        securitylog.EventPatientUpdated,
		EventDescription: desc,
		UserID:           &p.ID,
		Username:         &p.Username,
		UserRole:         &p.Role,
		TargetType:       strPtr("patient"),
		TargetID:         &rec.ID,
		IPAddress:        strPtr(c.RealIP()),
	})
	return c.JSON(http.StatusOK, rec)
}

// Delete handles DELETE /patients/:id.
func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if err := h.patients.Delete(ctx, id); err != nil {
		return err
	}

	p := auth.MustPrincipal(c)
	h.audit.Log(ctx, securitylog.Entry{
		EventType:        securitylog.EventPatientDeleted,
		EventDescription: "Patient record deleted",
		Severity:         securitylog.SeverityWarning,
		UserID:           &p.ID,
		Username:         &p.Username,
		UserRole:         &p.Role,
		TargetType:       strPtr("patient"),
		TargetID:         &id,
		IPAddress:        strPtr(c.RealIP()),
	})
	return c.JSON(http.StatusOK, map[string]string{"message": "patient deleted"})
}

// Predict handles POST /patients/predict/stroke. Nothing is persisted.
func (h *Handler) Predict(c echo.Context) error {
	var a Attributes
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	pred, err := h.patients.Predict(a)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pred)
}

// History handles GET /patients/:id/medical-history.
func (h *Handler) History(c echo.Context) error {
	ctx := c.Request().Context()
	rec, err := h.patients.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := h.canView(c, rec); err != nil {
		return err
	}

	history, err := h.patients.History(ctx, rec.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id": rec.ID,
		"history":    history,
	})
}

type addHistoryRequest struct {
	RecordType  string  `json:"record_type"`
	Description string  `json:"description"`
	Medications *string `json:"medications"`
	Notes       *string `json:"notes"`
}

// AddHistory handles POST /patients/:id/medical-history.
func (h *Handler) AddHistory(c echo.Context) error {
	var req addHistoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RecordType == "" || req.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "record_type and description are required")
	}

	ctx := c.Request().Context()
	p := auth.MustPrincipal(c)

	entry := &HistoryRecord{
		PatientID:   c.Param("id"),
		RecordType:  req.RecordType,
		Description: req.Description,
		DoctorID:    &p.ID,
		Medications: req.Medications,
		Notes:       req.Notes,
	}
	if doctor, err := h.users.Get(ctx, p.ID); err == nil {
		name := doctor.FirstName + " " + doctor.LastName
		entry.DoctorName = &name
	}

	if err := h.patients.AddHistory(ctx, entry); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

// canView enforces read scoping: patients only reach records they created.
func (h *Handler) canView(c echo.Context, rec *Record) error {
	p := auth.MustPrincipal(c)
	if p.Role == identity.RolePatient {
		if rec.CreatedBy == nil || *rec.CreatedBy != p.ID {
			return echo.NewHTTPError(http.StatusForbidden, "access denied")
		}
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func paginateRecords(records []*Record, pg pagination.Params) []*Record {
	if pg.Offset >= len(records) {
		return []*Record{}
	}
	end := pg.Offset + pg.Limit
	if end > len(records) {
		end = len(records)
	}
	return records[pg.Offset:end]
}
