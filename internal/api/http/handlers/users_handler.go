package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// UsersHandler exposes profile endpoints for the authenticated user.
type UsersHandler struct {
	profiles *service.ProfileService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(profiles *service.ProfileService) *UsersHandler {
	return &UsersHandler{profiles: profiles}
}

// GetProfile handles GET /users/profile.
func (h *UsersHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	profile, err := h.profiles.GetProfile(c.Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// UpdateProfile handles PATCH /users/profile.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	profile, err := h.profiles.UpdateProfile(c.Context(), user.ID, service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// ChangeEmail handles PATCH /users/email.
func (h *UsersHandler) ChangeEmail(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	var req dto.ChangeEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	profile, err := h.profiles.ChangeEmail(c.Context(), user.ID, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}
