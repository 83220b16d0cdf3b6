package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/dto"
	"github.com/prperemyshlev/school-auth-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockAuthService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password)
	result, _ := args.Get(0).(*service.LoginResult)
	return result, args.Error(1)
}

func (m *mockAuthService) LoginWithOTP(ctx context.Context, email, password string) (*service.OTPChallenge, error) {
	args := m.Called(ctx, email, password)
	challenge, _ := args.Get(0).(*service.OTPChallenge)
	return challenge, args.Error(1)
}

func (m *mockAuthService) VerifyOTPAndLogin(ctx context.Context, otpRef string, otp int) (*service.LoginResult, error) {
	args := m.Called(ctx, otpRef, otp)
	result, _ := args.Get(0).(*service.LoginResult)
	return result, args.Error(1)
}

func (m *mockAuthService) ResendOTP(ctx context.Context, otpRef string) (*service.OTPChallenge, error) {
	args := m.Called(ctx, otpRef)
	challenge, _ := args.Get(0).(*service.OTPChallenge)
	return challenge, args.Error(1)
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, email string) (*domain.TempResetToken, error) {
	args := m.Called(ctx, email)
	record, _ := args.Get(0).(*domain.TempResetToken)
	return record, args.Error(1)
}

func (m *mockAuthService) ValidateResetToken(ctx context.Context, token string) (*domain.TempResetToken, error) {
	args := m.Called(ctx, token)
	record, _ := args.Get(0).(*domain.TempResetToken)
	return record, args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(*domain.TokenClaims)
	return claims, args.Error(1)
}

func (m *mockAuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockAuthService) ListSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	args := m.Called(ctx, userID)
	sessions, _ := args.Get(0).([]*domain.Session)
	return sessions, args.Error(1)
}

var loginAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newRouter(t *testing.T, svc *mockAuthService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewAuthHandler(svc, zaptest.NewLogger(t))
	r := gin.New()
	auth := r.Group("/api/v1/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/login/otp", h.LoginWithOTP)
	auth.POST("/otp/verify", h.VerifyOTP)
	auth.POST("/otp/resend", h.ResendOTP)
	auth.POST("/forgot-password", h.ForgotPassword)
	auth.POST("/reset-password/validate", h.ValidateResetToken)
	auth.POST("/logout", AuthMiddleware(svc), h.Logout)
	auth.GET("/me", AuthMiddleware(svc), h.GetMe)
	auth.GET("/sessions", AuthMiddleware(svc), h.ListSessions)
	return r
}

func do(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func loginResult() *service.LoginResult {
	return &service.LoginResult{
		Session: &domain.Session{
			ID:          "s1",
			AccessToken: "jwt-token",
			Status:      domain.SessionStatusCurrent,
			LoginAt:     loginAt,
			ExpireAt:    loginAt.Add(7 * 24 * time.Hour),
		},
		User:           &domain.User{ID: "u1", Email: "student@school.test"},
		TokenExpiresIn: 24 * time.Hour,
	}
}

func TestLogin(t *testing.T) {
	svc := &mockAuthService{}
	r := newRouter(t, svc)
	svc.On("Login", mock.Anything, "student@school.test", "Password123").Return(loginResult(), nil)

	w := do(r, http.MethodPost, "/api/v1/auth/login",
		dto.LoginRequest{Email: "student@school.test", Password: "Password123"}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.AuthResponse](t, w)
	assert.Equal(t, "jwt-token", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 86400, resp.ExpiresIn)
	assert.Equal(t, "u1", resp.User.ID)
}

func TestLogin_UniformFailure(t *testing.T) {
	svc := &mockAuthService{}
	r := newRouter(t, svc)
	svc.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidCredentials)

	w := do(r, http.MethodPost, "/api/v1/auth/login",
		dto.LoginRequest{Email: "nobody@school.test", Password: "x"}, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, domain.ErrInvalidCredentials.Error(), resp.Message)
}

func TestLogin_ValidationError(t *testing.T) {
	svc := &mockAuthService{}
	r := newRouter(t, svc)

	w := do(r, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "not-an-email"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_InfrastructureErrorIsHidden(t *testing.T) {
	svc := &mockAuthService{}
	r := newRouter(t, svc)
	svc.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("failed to get user: %w", errors.New("dial tcp 10.0.0.5:5432: connection refused")))

	w := do(r, http.MethodPost, "/api/v1/auth/login",
		dto.LoginRequest{Email: "student@school.test", Password: "Password123"}, nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestLoginWithOTP(t *testing.T) {
	challenge := &service.OTPChallenge{OTPRef: "a1B2c3", ExpiresAt: loginAt.Add(2 * time.Minute)}

	tests := []struct {
		name       string
		challenge  *service.OTPChallenge
		err        error
		wantStatus int
		wantRef    string
	}{
		{name: "sent", challenge: challenge, wantStatus: http.StatusOK, wantRef: "a1B2c3"},
		{
			name:       "mail failed keeps reference",
			challenge:  challenge,
			err:        fmt.Errorf("%w: smtp down", domain.ErrNotificationFailed),
			wantStatus: http.StatusBadGateway,
			wantRef:    "a1B2c3",
		},
		{name: "bad credentials", err: domain.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{}
			r := newRouter(t, svc)
			svc.On("LoginWithOTP", mock.Anything, "student@school.test", "Password123").Return(tt.challenge, tt.err)

			w := do(r, http.MethodPost, "/api/v1/auth/login/otp",
				dto.LoginRequest{Email: "student@school.test", Password: "Password123"}, nil)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantRef != "" {
				resp := decode[dto.OTPChallengeResponse](t, w)
				assert.Equal(t, tt.wantRef, resp.OTPRef)
				assert.Equal(t, "2024-05-01T10:02:00Z", resp.ExpiresAt)
			}
		})
	}
}

func TestVerifyOTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "success", wantStatus: http.StatusOK},
		{name: "unknown reference", err: domain.ErrOtpNotFound, wantStatus: http.StatusNotFound},
		{name: "expired", err: domain.ErrOtpExpired, wantStatus: http.StatusGone},
		{name: "mismatch", err: domain.ErrOtpMismatch, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{}
			r := newRouter(t, svc)
			if tt.err != nil {
				svc.On("VerifyOTPAndLogin", mock.Anything, "a1B2c3", 123456).Return(nil, tt.err)
			} else {
				svc.On("VerifyOTPAndLogin", mock.Anything, "a1B2c3", 123456).Return(loginResult(), nil)
			}

			w := do(r, http.MethodPost, "/api/v1/auth/otp/verify",
				dto.VerifyOTPRequest{OTPRef: "a1B2c3", OTP: 123456}, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestVerifyOTP_RejectsMalformedCode(t *testing.T) {
	svc := &mockAuthService{}
	r := newRouter(t, svc)

	w := do(r, http.MethodPost, "/api/v1/auth/otp/verify", map[string]any{"otp_ref": "a1B2c3", "otp": 12}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForgotPassword(t *testing.T) {
	svc := &mockAuthService{}
	r := newRouter(t, svc)
	record := &domain.TempResetToken{Token: "secret-token", ExpireAt: loginAt.Add(2 * time.Hour)}
	svc.On("ForgotPassword", mock.Anything, "student@school.test").Return(record, nil)
	svc.On("ForgotPassword", mock.Anything, "x@example.com").Return(nil, domain.ErrUserNotFound)

	w := do(r, http.MethodPost, "/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: "student@school.test"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-token")

	w = do(r, http.MethodPost, "/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: "x@example.com"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateResetToken(t *testing.T) {
	svc := &mockAuthService{}
	r := newRouter(t, svc)
	svc.On("ValidateResetToken", mock.Anything, "old").Return(nil, domain.ErrResetTokenExpired)

	w := do(r, http.MethodPost, "/api/v1/auth/reset-password/validate", dto.ResetTokenRequest{Token: "old"}, nil)
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestRegister(t *testing.T) {
	svc := &mockAuthService{}
	r := newRouter(t, svc)
	svc.On("Register", mock.Anything, "new@school.test", "Password123").
		Return(&domain.User{ID: "u2", Email: "new@school.test", Status: domain.UserStatusActive}, nil)
	svc.On("Register", mock.Anything, "taken@school.test", "Password123").Return(nil, domain.ErrUserExists)

	w := do(r, http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{Email: "new@school.test", Password: "Password123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "u2", decode[dto.UserResponse](t, w).ID)

	w = do(r, http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{Email: "taken@school.test", Password: "Password123"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProtectedRoutes(t *testing.T) {
	svc := &mockAuthService{}
	r := newRouter(t, svc)
	claims := &domain.TokenClaims{UserID: "u1", Email: "student@school.test", ID: "jti-1"}
	svc.On("ValidateToken", mock.Anything, "good").Return(claims, nil)
	svc.On("ValidateToken", mock.Anything, "revoked").Return(nil, domain.ErrTokenRevoked)
	svc.On("GetUser", mock.Anything, "u1").Return(&domain.User{ID: "u1", Email: "student@school.test"}, nil)
	svc.On("ListSessions", mock.Anything, "u1").Return([]*domain.Session{
		{ID: "s1", AccessToken: "good", Status: domain.SessionStatusCurrent},
		{ID: "s0", AccessToken: "older", Status: domain.SessionStatusExpired},
	}, nil)
	svc.On("Logout", mock.Anything, "good").Return(nil)

	w := do(r, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/v1/auth/me", nil, map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/v1/auth/me", nil, map[string]string{"Authorization": "Bearer revoked"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/v1/auth/me", nil, map[string]string{"Authorization": "bearer good"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", decode[dto.UserResponse](t, w).ID)

	w = do(r, http.MethodGet, "/api/v1/auth/sessions", nil, map[string]string{"Authorization": "Bearer good"})
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decode[dto.SessionsResponse](t, w)
	require.Len(t, sessions.Sessions, 2)
	assert.True(t, sessions.Sessions[0].Current)
	assert.Equal(t, "expired", sessions.Sessions[1].Status)

	w = do(r, http.MethodPost, "/api/v1/auth/logout", nil, map[string]string{"Authorization": "Bearer good"})
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertCalled(t, "Logout", mock.Anything, "good")
}

func TestStatusFor(t *testing.T) {
	m, ok := statusFor(fmt.Errorf("wrapped: %w", domain.ErrOtpExpired))
	assert.True(t, ok)
	assert.Equal(t, http.StatusGone, m.status)

	m, ok = statusFor(errors.New("boom"))
	assert.False(t, ok)
	assert.Equal(t, http.StatusInternalServerError, m.status)
}
