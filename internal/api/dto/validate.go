package dto

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// wrapValidation converts ozzo field errors into a VALIDATION_FAILED
// DomainError carrying a per-field detail map.
func wrapValidation(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			details[field] = fieldErr.Error()
		}
		return apperrors.NewValidationError("invalid request", details)
	}
	return apperrors.NewValidationError(err.Error(), nil)
}
