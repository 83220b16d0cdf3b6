package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents a login request, used by both login variants
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyOTPRequest completes an otp-gated login
type VerifyOTPRequest struct {
	OTPRef string `json:"otp_ref" binding:"required"`
	OTP    int    `json:"otp" binding:"required,min=100000,max=999999"`
}

// ResendOTPRequest asks for a new code under an existing reference
type ResendOTPRequest struct {
	OTPRef string `json:"otp_ref" binding:"required"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetTokenRequest carries a password reset token
type ResetTokenRequest struct {
	Token string `json:"token" binding:"required"`
}
