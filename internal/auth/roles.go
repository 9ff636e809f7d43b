package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/backoffice-auth/internal/domain"
	apperrors "github.com/spec-kit/backoffice-auth/pkg/util"
)

// RequireAuthenticated ensures the caller presented an accepted credential.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

// RequireSigned ensures the caller authenticated with a signed token. Legacy
// identities are format-only and get 403.
func RequireSigned() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if principal.Trust != domain.TrustSigned {
			return apperrors.NewForbidden("signed token required")
		}
		return c.Next()
	}
}
