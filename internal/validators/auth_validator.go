package validators

import (
	"regexp"
	"strings"

	"emrSocket/internal/errs"
	"emrSocket/internal/models"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func ValidateLogin(body *models.LoginRequestBody) []error {
	var errors []error
	if body == nil {
		return []error{errs.ErrInvalidRequestBody}
	}
	if !ValidateEmail(strings.TrimSpace(body.Email)) {
		errors = append(errors, errs.ErrInvalidEmail)
	}
	if len(body.Password) < 8 {
		errors = append(errors, errs.ErrInvalidPassword)
	}
	return errors
}

func ValidateEmail(email string) bool {
	return email != "" && emailPattern.MatchString(email)
}
