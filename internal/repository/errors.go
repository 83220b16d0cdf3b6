package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateCredentials is returned when a user already has a credentials record
	ErrDuplicateCredentials = errors.New("credentials for this user already exist")

	// ErrDuplicateOtpRef is returned when an otp reference is already held by another record
	ErrDuplicateOtpRef = errors.New("otp reference already in use")

	// ErrDuplicateToken is returned when trying to store a token that already exists
	ErrDuplicateToken = errors.New("token already exists")
)
