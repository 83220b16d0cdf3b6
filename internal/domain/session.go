package domain

import "time"

// SessionStatus is the recorded state of a login session
type SessionStatus string

const (
	SessionStatusCurrent SessionStatus = "current"
	SessionStatusExpired SessionStatus = "expired"
	SessionStatusRevoked SessionStatus = "revoked"
)

// Session records one successful authentication
type Session struct {
	ID          string        `json:"id" db:"id"`
	UserID      string        `json:"user_id" db:"user_id"`
	AccessToken string        `json:"access_token" db:"access_token"`
	Status      SessionStatus `json:"status" db:"status"`
	LoginAt     time.Time     `json:"login_at" db:"login_at"`
	ExpireAt    time.Time     `json:"expire_at" db:"expire_at"`
}

// IsExpiredAt reports whether the session is past its expiry at t
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpireAt)
}

// EffectiveStatus computes the status at t. Stored rows are never
// rewritten on expiry, so a current session past ExpireAt reads as expired.
func (s *Session) EffectiveStatus(t time.Time) SessionStatus {
	if s.Status == SessionStatusCurrent && s.IsExpiredAt(t) {
		return SessionStatusExpired
	}
	return s.Status
}
