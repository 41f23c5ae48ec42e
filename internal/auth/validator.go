package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Credentials is the body of register and login requests. Usernames are
// limited to 64 characters. Passwords have no limit; only their first 72
// bytes reach bcrypt.
type Credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the credentials with surrounding whitespace ignored.
// The stored username is not trimmed.
func (c Credentials) Validate() error {
	trimmed := Credentials{
		Username: strings.TrimSpace(c.Username),
		Password: strings.TrimSpace(c.Password),
	}
	err := validate.Struct(trimmed)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Field() == "Username" && fe.Tag() == "max" {
				return fmt.Errorf("%w: %w", ErrInvalidCredentials, ErrUsernameTooLong)
			}
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
}
