package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/strokecare/api/internal/domain/securitylog"
	"github.com/strokecare/api/internal/platform/auth"
	"github.com/strokecare/api/internal/platform/errs"
)

// RequestMeta carries the client address and agent string into the audit
// trail.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuthService authenticates credentials and verifies session tokens.
// Every authentication outcome appends exactly one audit entry. There is
// no revocation list: logout is an audit event only and a token stays
// cryptographically valid until its expiry.
type AuthService struct {
	users  *Service
	signer *auth.TokenSigner
	audit  *securitylog.Service
}

func NewAuthService(users *Service, signer *auth.TokenSigner, audit *securitylog.Service) *AuthService {
	return &AuthService{users: users, signer: signer, audit: audit}
}

// Authenticate looks up the account, verifies the password and active
// flag, touches last_login, and issues a token. The failure message never
// reveals whether the username exists.
func (a *AuthService) Authenticate(ctx context.Context, username, password string, meta RequestMeta) (string, *User, error) {
	u, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			a.logFailure(ctx, username, "unknown username", meta)
			return "", nil, errs.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !a.users.VerifyPassword(u, password) {
		a.logFailure(ctx, username, "wrong password", meta)
		return "", nil, errs.ErrInvalidCredentials
	}

	if !u.IsActive {
		a.audit.Log(ctx, securitylog.Entry{
			EventType:        securitylog.EventFailedLogin,
			EventDescription: fmt.Sprintf("Login attempt on deactivated account %s", username),
			Username:         &u.Username,
			UserID:           &u.ID,
			UserRole:         &u.Role,
			IPAddress:        optional(meta.IPAddress),
			UserAgent:        optional(meta.UserAgent),
			Status:           securitylog.StatusFailure,
			Severity:         securitylog.SeverityWarning,
		})
		return "", nil, errs.ErrDeactivated
	}

	// Best-effort: a failed timestamp update must not block login.
	_ = a.users.repo.TouchLastLogin(ctx, u.ID)

	token, err := a.signer.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return "", nil, err
	}

	a.audit.Log(ctx, securitylog.Entry{
		EventType:        securitylog.EventLogin,
		EventDescription: fmt.Sprintf("User %s logged in", username),
		UserID:           &u.ID,
		Username:         &u.Username,
		UserRole:         &u.Role,
		IPAddress:        optional(meta.IPAddress),
		UserAgent:        optional(meta.UserAgent),
	})
	return token, u, nil
}

func (a *AuthService) logFailure(ctx context.Context, username, reason string, meta RequestMeta) {
	a.audit.Log(ctx, securitylog.Entry{
		EventType:        securitylog.EventFailedLogin,
		EventDescription: fmt.Sprintf("Failed login for %s: %s", username, reason),
		Username:         &username,
		IPAddress:        optional(meta.IPAddress),
		UserAgent:        optional(meta.UserAgent),
		Status:           securitylog.StatusFailure,
		Severity:         securitylog.SeverityWarning,
	})
}

// VerifyToken checks signature and expiry, then re-resolves the embedded
// id so tokens for since-deleted accounts are rejected as invalid.
func (a *AuthService) VerifyToken(ctx context.Context, token string) (auth.Principal, error) {
	claims, err := a.signer.Parse(token)
	if err != nil {
		return auth.Principal{}, err
	}
	u, err := a.users.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return auth.Principal{}, errs.ErrTokenInvalid
		}
		return auth.Principal{}, err
	}
	if !u.IsActive {
		return auth.Principal{}, errs.ErrTokenInvalid
	}
	return auth.Principal{ID: u.ID, Username: u.Username, Role: u.Role}, nil
}

// Logout records the event. The token itself stays valid until expiry.
func (a *AuthService) Logout(ctx context.Context, u auth.Principal, meta RequestMeta) {
	a.audit.Log(ctx, securitylog.Entry{
		EventType:        securitylog.EventLogout,
		EventDescription: fmt.Sprintf("User %s logged out", u.Username),
		UserID:           &u.ID,
		Username:         &u.Username,
		UserRole:         &u.Role,
		IPAddress:        optional(meta.IPAddress),
		UserAgent:        optional(meta.UserAgent),
	})
}

// ChangePassword verifies the current password before setting a new one.
func (a *AuthService) ChangePassword(ctx context.Context, userID, current, newPassword string, meta RequestMeta) error {
	u, err := a.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !a.users.VerifyPassword(u, current) {
		return errs.ErrInvalidCredentials
	}
	if err := a.users.SetPassword(ctx, u, newPassword); err != nil {
		return err
	}
	a.audit.Log(ctx, securitylog.Entry{
		EventType:        securitylog.EventPasswordChanged,
		EventDescription: fmt.Sprintf("User %s changed password", u.Username),
		UserID:           &u.ID,
		Username:         &u.Username,
		UserRole:         &u.Role,
		IPAddress:        optional(meta.IPAddress),
		UserAgent:        optional(meta.UserAgent),
	})
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
