package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/backoffice-auth/internal/api/dto"
	"github.com/spec-kit/backoffice-auth/internal/auth"
	"github.com/spec-kit/backoffice-auth/internal/service"
	apperrors "github.com/spec-kit/backoffice-auth/pkg/util"
)

const tokenTypeBearer = "Bearer"

// AuthHandler exposes login and identity endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, issued, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return mapAuthError(err)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.UserResponse{
				ID:        user.ID,
				Email:     user.Email,
				FirstName: user.FirstName,
				LastName:  user.LastName,
			},
			"auth": authResponse(issued),
		},
	})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{
		"data": dto.IdentityResponse{
			Subject:   principal.Subject,
			Email:     principal.Email,
			FirstName: principal.FirstName,
			LastName:  principal.LastName,
			Trust:     string(principal.Trust),
			ExpiresAt: principal.ExpiresAt,
		},
	})
}

// Refresh handles POST /auth/token/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	issued, err := h.auth.Refresh(c.UserContext(), principal.Subject)
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"auth": authResponse(issued)}})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current and new password required", nil)
	}
	if err := h.auth.ChangePassword(c.UserContext(), principal.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		return mapAuthError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func authResponse(issued service.IssuedToken) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     issued.Token,
		TokenType: tokenTypeBearer,
		ExpiresAt: issued.Claims.ExpiresAt,
	}
}

func mapAuthError(err error) error {
	if errors.Is(err, service.ErrInvalidCredentials) {
		return apperrors.NewUnauthorized(err.Error())
	}
	return apperrors.MapError(err)
}
