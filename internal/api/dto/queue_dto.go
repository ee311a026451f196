package dto

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// AddMessageRequest payload for enqueuing a message.
type AddMessageRequest struct {
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata"`
}

// Validate checks the enqueue payload.
func (r AddMessageRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required),
	))
}
