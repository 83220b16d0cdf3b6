package domain

import "time"

// UserProfile is the identity bound into an issued token
type UserProfile struct {
	UserID string
	Email  string
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	ID     string `json:"jti"`
	Exp    int64  `json:"exp"`
	Iat    int64  `json:"iat"`
}

// ExpiresAt returns the expiry of the token as a time value
func (tc TokenClaims) ExpiresAt() time.Time {
	return time.Unix(tc.Exp, 0).UTC()
}

// TempResetToken is a single-use password reset token.
// It carries no reference to the user it was issued for.
type TempResetToken struct {
	ID        string    `json:"id" db:"id"`
	Token     string    `json:"token" db:"token"`
	ExpireAt  time.Time `json:"expire_at" db:"expire_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsExpiredAt reports whether the reset token is expired at t
func (r *TempResetToken) IsExpiredAt(t time.Time) bool {
	return t.After(r.ExpireAt)
}
