package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/strokecare/api/internal/platform/errs"
)

type contextKey string

const principalKey contextKey = "auth_principal"

// Principal is the authenticated identity attached to the request context.
type Principal struct {
	ID       string
	Username string
	Role     string
}

// Verifier resolves a bearer token to a live principal. Implemented by the
// identity auth service, which checks the token and then re-resolves the
// embedded id so deleted accounts are rejected.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (Principal, error)
}

// Middleware enforces `Authorization: Bearer <token>` on every route it
// wraps. A missing or malformed header and a failed verification both end
// the request with 401.
func Middleware(verifier Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			principal, err := verifier.VerifyToken(c.Request().Context(), parts[1])
			if err != nil {
				if errors.Is(err, errs.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token has expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "token is invalid")
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), principal)))
			return next(c)
		}
	}
}

// WithPrincipal attaches a principal to the context. Middleware uses it
// after verification; anything driving handlers outside the HTTP stack can
// use it directly.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// MustPrincipal is for handlers behind Middleware, where a principal is
// always present.
func MustPrincipal(c echo.Context) Principal {
	p, _ := PrincipalFromContext(c.Request().Context())
	return p
}
