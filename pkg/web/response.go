// Package web defines common components for a web application.
package web

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Error wraps a given err into json frinedly struct.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// BindingError converts a request binding error into a client facing message.
//
// Validation errors are reported for the first failed field, anything else
// (malformed JSON, wrong types) is reported as is.
func BindingError(err error) Response {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		field := ve[0]
		return Response{Error: field.Field() + GetErrorMsg(field)}
	}

	return Response{Error: err.Error()}
}

// GetErrorMsg returns the message suffix for the failed validation tag.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " is required"
	case "min":
		return fmt.Sprintf(" must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf(" must be at most %s characters long", fe.Param())
	case "oneof":
		return fmt.Sprintf(" must be one of [%s]", fe.Param())
	case "uuid":
		return " must be a valid UUID"
	case "amount":
		return " must be a positive decimal number"
	case "balance":
		return " must be a non-negative decimal number"
	}

	return " is invalid"
}
