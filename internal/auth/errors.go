package auth

import "errors"

var (
	// ErrUserExists is returned by Register when the username is taken.
	ErrUserExists = errors.New("username already exists")
	// ErrInvalidCredentials wraps every credential validation failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTooLong marks a username over the length limit. It is
	// always wrapped together with ErrInvalidCredentials.
	ErrUsernameTooLong = errors.New("username is too long")
)
