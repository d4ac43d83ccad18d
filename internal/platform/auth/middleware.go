package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	DoctorIDKey contextKey = "doctor_id"
	LocaleKey   contextKey = "locale"
)

// JWTMiddleware authenticates requests with a Bearer access token and places
// the doctor ID and preferred locale on the request context. Refresh tokens
// are rejected here; they are only accepted by the refresh endpoint.
func JWTMiddleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1], TokenTypeAccess)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			doctorID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, DoctorIDKey, doctorID)
			ctx = context.WithValue(ctx, LocaleKey, claims.Locale)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DoctorIDFromContext returns the authenticated doctor ID, or uuid.Nil when
// the request was not authenticated.
func DoctorIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(DoctorIDKey).(uuid.UUID)
	return id
}

// LocaleFromContext returns the doctor's preferred locale claim, if any.
func LocaleFromContext(ctx context.Context) string {
	locale, _ := ctx.Value(LocaleKey).(string)
	return locale
}
