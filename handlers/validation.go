package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// validationMessage turns the first validator error into a specific,
// user-facing message.
func validationMessage(err error) string {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		for _, vErr := range vErrs {
			switch vErr.Tag() {
			case "required":
				return vErr.Field() + " value missing"
			case "min":
				return vErr.Field() + " value is less than " + vErr.Param()
			case "max":
				return vErr.Field() + " value is more than " + vErr.Param()
			case "email":
				return vErr.Field() + " is not a valid email"
			case "oneof":
				return vErr.Field() + " must be one of: " + vErr.Param()
			default:
				return vErr.Field() + " is invalid"
			}
		}
	}
	return http.StatusText(http.StatusBadRequest)
}
