package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/and161185/authcore/internal/model"
)

const contextIdentityKey = "auth_identity"

type authMiddleware struct {
	verifier IdentityVerifier
}

// RequireAuth verifies the bearer token and stores the caller on the echo context.
func (m authMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := m.verifier.Verify(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Set(contextIdentityKey, id)
		return next(c)
	}
}

// IdentityFromContext returns the caller stored by RequireAuth.
func IdentityFromContext(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(contextIdentityKey).(model.Identity)
	return id, ok
}
