package domain

import "time"

// UserStatus is the lifecycle state of a user account
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusInactive  UserStatus = "inactive"
)

// User represents an identity record in the system
type User struct {
	ID            string     `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	Status        UserStatus `json:"status" db:"status"`
	LastLoginAt   *time.Time `json:"last_login_at" db:"last_login_at"`
	TokenExpireAt *time.Time `json:"token_expire_at" db:"token_expire_at"`
	IsDeleted     bool       `json:"-" db:"is_deleted"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the user may receive password reset tokens
func (u *User) IsActive() bool {
	return !u.IsDeleted && u.Status == UserStatusActive
}

// Profile returns the claims subset embedded into issued tokens
func (u *User) Profile() UserProfile {
	return UserProfile{
		UserID: u.ID,
		Email:  u.Email,
	}
}

// UserCredentials holds the secret material of a user, one-to-one with User
type UserCredentials struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Password  string    `json:"-" db:"password"`
	Security  *Security `json:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Security is the single live OTP challenge of a credentials record.
// Issuing a new challenge overwrites it.
type Security struct {
	OTP         int       `json:"otp" db:"otp"`
	OTPRef      string    `json:"otp_ref" db:"otp_ref"`
	GeneratedAt time.Time `json:"generated_at" db:"otp_generated_at"`
	ExpiredAt   time.Time `json:"expired_at" db:"otp_expired_at"`
}

// IsExpiredAt reports whether the challenge is expired at t.
// The expiry instant itself is still valid.
func (s *Security) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiredAt)
}
