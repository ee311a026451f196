package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// AuthHandler exposes registration, login and password endpoints.
type AuthHandler struct {
	credentials *service.CredentialService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(credentials *service.CredentialService) *AuthHandler {
	return &AuthHandler{credentials: credentials}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	result, err := h.credentials.Register(c.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(result)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	result, err := h.credentials.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// ChangePassword handles POST /auth/change-password for the
// authenticated user.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	if err := h.credentials.ChangePassword(c.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// RequestPasswordReset handles POST /auth/request-password-reset.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.RequestPasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	message, err := h.credentials.RequestPasswordReset(c.Context(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": message})
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	message, err := h.credentials.ResetPassword(c.Context(), req.Email, req.NewPassword, req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": message})
}
