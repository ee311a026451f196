package dto

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Validate checks the register payload.
func (r RegisterRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
	))
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login payload.
func (r LoginRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	))
}

// ChangePasswordRequest payload for authenticated password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate checks the change-password payload.
func (r ChangePasswordRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 0)),
	))
}

// RequestPasswordResetRequest payload for reset requests.
type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

// Validate checks the reset-request payload.
func (r RequestPasswordResetRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
	))
}

// ResetPasswordRequest payload for confirming a reset. Token is optional;
// when present it must match a minted reset token.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
	Token       string `json:"token"`
}

// Validate checks the reset payload.
func (r ResetPasswordRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 0)),
	))
}
