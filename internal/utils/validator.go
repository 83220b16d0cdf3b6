package utils

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	emailMinLength = 5
	emailMaxLength = 254

	passwordMinLength = 8
	// bcrypt ignores everything past 72 bytes
	passwordMaxBytes = 72
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	if len(email) < emailMinLength || len(email) > emailMaxLength {
		return false
	}
	return emailRegex.MatchString(email)
}

// ValidatePassword requires at least 8 characters with an upper case
// letter, a lower case letter and a digit
func ValidatePassword(password string) bool {
	if len([]rune(password)) < passwordMinLength || len(password) > passwordMaxBytes {
		return false
	}
	return strings.ContainsFunc(password, unicode.IsUpper) &&
		strings.ContainsFunc(password, unicode.IsLower) &&
		strings.ContainsFunc(password, unicode.IsDigit)
}

// NormalizeEmail trims and lowercases an email for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
