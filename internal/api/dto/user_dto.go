package dto

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// UpdateProfileRequest carries a partial profile update. Pointer fields
// distinguish "absent" from "set to empty".
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// Validate checks the update payload. Both fields are optional.
func (r UpdateProfileRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 100)),
		validation.Field(&r.LastName, validation.Length(0, 100)),
	))
}

// ChangeEmailRequest payload for email changes.
type ChangeEmailRequest struct {
	Email string `json:"email"`
}

// Validate checks the email payload.
func (r ChangeEmailRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
	))
}
