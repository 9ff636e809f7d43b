package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/backoffice-auth/internal/domain"
	apperrors "github.com/spec-kit/backoffice-auth/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
	Trust     domain.TrustLevel
	ExpiresAt *time.Time
}

// AuthMiddleware runs the gate for every request and stores the principal.
// Requests without a credential pass through anonymously; route guards decide.
type AuthMiddleware struct {
	gate *Gate
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(gate *Gate) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

// Handle authenticates the request.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	outcome, err := m.gate.Authenticate(c.UserContext(), c.GetReqHeaders())
	if err != nil {
		return apperrors.MapError(err)
	}

	switch o := outcome.(type) {
	case Anonymous:
		return c.Next()
	case SignedOutcome:
		exp := o.Claims.ExpiresAt
		c.Locals(principalKey, &Principal{
			Subject:   o.Claims.Subject,
			Email:     o.Claims.Email,
			FirstName: o.Claims.FirstName,
			LastName:  o.Claims.LastName,
			Trust:     domain.TrustSigned,
			ExpiresAt: &exp,
		})
	case LegacyOutcome:
		principal := &Principal{Subject: o.Subject, Trust: domain.TrustLegacy}
		if o.User != nil {
			principal.Email = o.User.Email
			principal.FirstName = o.User.FirstName
			principal.LastName = o.User.LastName
		}
		c.Locals(principalKey, principal)
	case Rejected:
		return apperrors.NewUnauthorized(rejectionMessage(o.Decision))
	default:
		return apperrors.NewUnauthorized("invalid token")
	}
	return c.Next()
}

func rejectionMessage(d domain.Decision) string {
	switch d {
	case domain.DecisionExpired:
		return "token expired"
	case domain.DecisionNotFound:
		return "user not found"
	default:
		return "invalid token"
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
