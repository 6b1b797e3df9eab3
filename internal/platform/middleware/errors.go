package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/strokecare/api/internal/platform/errs"
)

// ErrorHandler maps the shared error taxonomy onto HTTP statuses so
// handlers can return domain errors as-is. Unrecognized errors become an
// opaque 500; the cause goes to the log, never to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			_ = c.JSON(httpErr.Code, map[string]interface{}{"error": httpErr.Message})
			return
		}

		if verr, ok := errs.AsValidation(err); ok {
			_ = c.JSON(http.StatusBadRequest, map[string]interface{}{"errors": verr.Fields})
			return
		}

		status, msg := classify(err)
		if status == http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}
		_ = c.JSON(status, map[string]interface{}{"error": msg})
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, errs.ErrDuplicateKey):
		return http.StatusConflict, "resource already exists"
	case errors.Is(err, errs.ErrInvalidCredentials):
		return http.StatusUnauthorized, errs.ErrInvalidCredentials.Error()
	case errors.Is(err, errs.ErrTokenExpired):
		return http.StatusUnauthorized, errs.ErrTokenExpired.Error()
	case errors.Is(err, errs.ErrTokenInvalid):
		return http.StatusUnauthorized, errs.ErrTokenInvalid.Error()
	case errors.Is(err, errs.ErrDeactivated):
		return http.StatusForbidden, errs.ErrDeactivated.Error()
	case errors.Is(err, errs.ErrInvalidDate):
		return http.StatusBadRequest, errs.ErrInvalidDate.Error()
	case errors.Is(err, errs.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
