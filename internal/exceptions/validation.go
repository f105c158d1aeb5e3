package exceptions

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var customValidationErrorMessages = map[string]string{
	"required": "is required",
	"objectid": "must be a 24 character hex id",
	"oneof":    "must be one of: %s",
	"email":    "must be a valid email",
	"max":      "must be at most %s",
	"min":      "must be at least %s",
}

var tagsWithParams = map[string]bool{
	"oneof": true,
	"max":   true,
	"min":   true,
}

func FormatFirstValidationError(err error) string {
	if err == nil {
		return ErrClientCannotProcessRequest
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return ErrClientCannotProcessRequest
	}

	firstErr := validationErrors[0]
	tag := firstErr.Tag()
	customMessage, ok := customValidationErrorMessages[tag]
	if !ok {
		customMessage = "is invalid"
	}
	if tagsWithParams[tag] {
		param := firstErr.Param()
		if tag == "oneof" {
			param = strings.Join(strings.Fields(param), ", ")
		}
		customMessage = strings.Replace(customMessage, "%s", param, 1)
	}
	return lowerFirst(firstErr.Field()) + " " + customMessage
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
