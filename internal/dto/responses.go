package dto

import (
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
)

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken      string   `json:"access_token"`
	TokenType        string   `json:"token_type"`
	ExpiresIn        int      `json:"expires_in"`
	SessionExpiresAt string   `json:"session_expires_at"`
	User             UserInfo `json:"user"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserResponse represents a user response
type UserResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	LastLoginAt *string `json:"last_login_at"`
}

// OTPChallengeResponse is returned when a code has been issued. Error is
// set when the email could not be sent; the reference still works for resend.
type OTPChallengeResponse struct {
	OTPRef    string `json:"otp_ref"`
	ExpiresAt string `json:"expires_at"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

// ResetTokenResponse confirms a reset token. The token itself only travels by email.
type ResetTokenResponse struct {
	Message   string `json:"message"`
	ExpiresAt string `json:"expires_at"`
}

// SessionResponse describes one login session
type SessionResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	LoginAt  string `json:"login_at"`
	ExpireAt string `json:"expire_at"`
	Current  bool   `json:"current"`
}

// SessionsResponse lists the sessions of the caller
type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NewAuthResponse builds the response of a successful login
func NewAuthResponse(session *domain.Session, user *domain.User, expiresIn time.Duration) AuthResponse {
	return AuthResponse{
		AccessToken:      session.AccessToken,
		TokenType:        "Bearer",
		ExpiresIn:        int(expiresIn.Seconds()),
		SessionExpiresAt: formatTime(session.ExpireAt),
		User: UserInfo{
			ID:    user.ID,
			Email: user.Email,
		},
	}
}

// NewUserResponse builds a user profile response
func NewUserResponse(user *domain.User) UserResponse {
	response := UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Status:    string(user.Status),
		CreatedAt: formatTime(user.CreatedAt),
		UpdatedAt: formatTime(user.UpdatedAt),
	}

	if user.LastLoginAt != nil {
		lastLogin := formatTime(*user.LastLoginAt)
		response.LastLoginAt = &lastLogin
	}

	return response
}

// NewSessionsResponse lists sessions, flagging the one of currentToken
func NewSessionsResponse(sessions []*domain.Session, currentToken string) SessionsResponse {
	response := SessionsResponse{Sessions: make([]SessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, SessionResponse{
			ID:       s.ID,
			Status:   string(s.Status),
			LoginAt:  formatTime(s.LoginAt),
			ExpireAt: formatTime(s.ExpireAt),
			Current:  s.AccessToken == currentToken,
		})
	}
	return response
}
