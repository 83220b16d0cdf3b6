package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/dto"
	"github.com/prperemyshlev/school-auth-service/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewUserResponse(user))
}

// Login handles password-only login
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthResponse(result.Session, result.User, result.TokenExpiresIn))
}

// LoginWithOTP handles the first step of an otp-gated login
// @Summary Login user with a one-time code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.OTPChallengeResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.OTPChallengeResponse
// @Router /auth/login/otp [post]
func (h *AuthHandler) LoginWithOTP(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	challenge, err := h.authService.LoginWithOTP(c.Request.Context(), req.Email, req.Password)
	h.writeChallenge(c, challenge, err, "OTP sent successfully")
}

// VerifyOTP handles the second step of an otp-gated login
// @Summary Verify a one-time code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.VerifyOTPRequest true "Verification request"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 410 {object} dto.ErrorResponse
// @Router /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	result, err := h.authService.VerifyOTPAndLogin(c.Request.Context(), req.OTPRef, req.OTP)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthResponse(result.Session, result.User, result.TokenExpiresIn))
}

// ResendOTP handles a request for a new code
// @Summary Resend a one-time code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResendOTPRequest true "Resend request"
// @Success 200 {object} dto.OTPChallengeResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.OTPChallengeResponse
// @Router /auth/otp/resend [post]
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req dto.ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	challenge, err := h.authService.ResendOTP(c.Request.Context(), req.OTPRef)
	h.writeChallenge(c, challenge, err, "OTP resent successfully")
}

func (h *AuthHandler) writeChallenge(c *gin.Context, challenge *service.OTPChallenge, err error, message string) {
	if challenge == nil {
		writeError(c, h.logger, err)
		return
	}

	response := dto.OTPChallengeResponse{
		OTPRef:    challenge.OTPRef,
		ExpiresAt: challenge.ExpiresAt.UTC().Format(time.RFC3339),
		Message:   message,
	}

	status := http.StatusOK
	if err != nil {
		if !errors.Is(err, domain.ErrNotificationFailed) {
			writeError(c, h.logger, err)
			return
		}
		status = http.StatusBadGateway
		response.Message = "OTP could not be sent, request a resend"
		response.Error = domain.ErrNotificationFailed.Error()
	}

	c.JSON(status, response)
}

// ForgotPassword issues a password reset token
// @Summary Request a password reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Forgot password request"
// @Success 200 {object} dto.ResetTokenResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	record, err := h.authService.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ResetTokenResponse{
		Message:   "ResetPassword Token is sent successfully",
		ExpiresAt: record.ExpireAt.UTC().Format(time.RFC3339),
	})
}

// ValidateResetToken checks a password reset token
// @Summary Check a password reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetTokenRequest true "Reset token"
// @Success 200 {object} dto.ResetTokenResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 410 {object} dto.ErrorResponse
// @Router /auth/reset-password/validate [post]
func (h *AuthHandler) ValidateResetToken(c *gin.Context) {
	var req dto.ResetTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	record, err := h.authService.ValidateResetToken(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ResetTokenResponse{
		Message:   "Reset token is valid",
		ExpiresAt: record.ExpireAt.UTC().Format(time.RFC3339),
	})
}

// Logout handles user logout
// @Summary Logout user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(ContextKeyToken)

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// GetMe handles getting current user profile
// @Summary Get current user profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.authService.GetUser(c.Request.Context(), c.GetString(ContextKeyUserID))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// ListSessions lists the login sessions of the current user
// @Summary List login sessions
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SessionsResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/sessions [get]
func (h *AuthHandler) ListSessions(c *gin.Context) {
	sessions, err := h.authService.ListSessions(c.Request.Context(), c.GetString(ContextKeyUserID))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionsResponse(sessions, c.GetString(ContextKeyToken)))
}
