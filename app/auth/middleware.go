package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const identityContextKey = "auth.identity"

type errorResponse struct {
	Error string `json:"error"`
}

// RequireRole authenticates the bearer token through the session
// collaborator and admits only the listed roles. Admins pass every
// role check.
func RequireRole(lookup SessionLookup, roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			identity, err := lookup.Lookup(ctx.Request().Context(), bearerToken(ctx))
			if err != nil {
				if errors.Is(err, ErrUnauthorized) {
					return ctx.JSON(http.StatusUnauthorized, &errorResponse{Error: "authentication required"})
				}
				return ctx.JSON(http.StatusInternalServerError, &errorResponse{Error: "internal server error"})
			}

			if !roleAllowed(identity.Role, roles) {
				return ctx.JSON(http.StatusForbidden, &errorResponse{Error: "forbidden"})
			}

			ctx.Set(identityContextKey, identity)
			return next(ctx)
		}
	}
}

// IdentityFromContext returns the identity stored by RequireRole, or nil
// on unauthenticated routes.
func IdentityFromContext(ctx echo.Context) *Identity {
	identity, _ := ctx.Get(identityContextKey).(*Identity)
	return identity
}

func roleAllowed(role Role, allowed []Role) bool {
	if role == RoleAdmin {
		return true
	}
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}

func bearerToken(ctx echo.Context) string {
	header := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderAuthorization))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
