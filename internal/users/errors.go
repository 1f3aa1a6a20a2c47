package users

import "errors"

var (
	// ErrInvalidName is returned when the name is empty
	ErrInvalidName = errors.New("name is required")

	// ErrInvalidEmail is returned when the email is missing or malformed
	ErrInvalidEmail = errors.New("email is required")

	// ErrWeakPassword is returned when the password is too short
	ErrWeakPassword = errors.New("password should contain at least 6 characters")

	// ErrPasswordTooLong is returned when the password exceeds what bcrypt accepts
	ErrPasswordTooLong = errors.New("password should contain at most 72 bytes")

	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when signing up with a registered email
	ErrEmailTaken = errors.New("user already registered")
)
