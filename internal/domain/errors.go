package domain

import "errors"

// Authentication failures reported to callers
var (
	// ErrInvalidCredentials covers unknown email, missing credentials and
	// password mismatch alike
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user with this email already exists")

	ErrInvalidEmail = errors.New("invalid email format")
	ErrWeakPassword = errors.New("password must be at least 8 characters long and contain uppercase, lowercase, and number")

	ErrOtpNotFound = errors.New("otp reference not found")
	ErrOtpExpired  = errors.New("otp is expired")
	ErrOtpMismatch = errors.New("enter valid otp")

	// ErrNotificationFailed is non-fatal: the persisted challenge or reset
	// token stays valid
	ErrNotificationFailed = errors.New("notification could not be sent")

	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token is expired")
	ErrTokenRevoked = errors.New("token is revoked")

	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrResetTokenExpired  = errors.New("reset token is expired")
)
