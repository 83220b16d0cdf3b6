package acceptance

import (
	"context"
	"net/http"
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/dto"
)

const (
	testEmail    = "student@school.test"
	testPassword = "Password123"
)

func (s *Suite) register(email string) dto.UserResponse {
	resp := s.post("/api/v1/auth/register", dto.RegisterRequest{Email: email, Password: testPassword}, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	return decode[dto.UserResponse](s, resp)
}

func (s *Suite) login(email string) dto.AuthResponse {
	resp := s.post("/api/v1/auth/login", dto.LoginRequest{Email: email, Password: testPassword}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	return decode[dto.AuthResponse](s, resp)
}

func (s *Suite) startOTP(email string) dto.OTPChallengeResponse {
	resp := s.post("/api/v1/auth/login/otp", dto.LoginRequest{Email: email, Password: testPassword}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	challenge := decode[dto.OTPChallengeResponse](s, resp)
	s.Require().NotEmpty(challenge.OTPRef)
	return challenge
}

// storedOTP reads the code that was emailed for otpRef
func (s *Suite) storedOTP(otpRef string) int {
	var otp int
	err := s.Postgres.DB.QueryRowContext(context.Background(),
		`SELECT otp FROM user_credentials WHERE otp_ref = $1`, otpRef).Scan(&otp)
	s.Require().NoError(err)
	return otp
}

func (s *Suite) TestRegister_Success() {
	user := s.register("New.Student@School.test")

	s.NotEmpty(user.ID)
	s.Equal("new.student@school.test", user.Email)
	s.Equal("active", user.Status)
	s.Nil(user.LastLoginAt)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register(testEmail)

	resp := s.post("/api/v1/auth/register", dto.RegisterRequest{Email: testEmail, Password: testPassword}, "")
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("Conflict", decode[dto.ErrorResponse](s, resp).Error)
}

func (s *Suite) TestRegister_InvalidInput() {
	resp := s.post("/api/v1/auth/register", dto.RegisterRequest{Email: "invalid-email", Password: testPassword}, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp = s.post("/api/v1/auth/register", dto.RegisterRequest{Email: testEmail, Password: "short"}, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_Success() {
	s.register(testEmail)

	auth := s.login(testEmail)
	s.NotEmpty(auth.AccessToken)
	s.Equal("Bearer", auth.TokenType)
	s.Equal(int((15 * time.Minute).Seconds()), auth.ExpiresIn)
	s.Equal(testEmail, auth.User.Email)

	expireAt, err := time.Parse(time.RFC3339, auth.SessionExpiresAt)
	s.Require().NoError(err)
	s.WithinDuration(time.Now().Add(7*24*time.Hour), expireAt, time.Minute)
}

func (s *Suite) TestLogin_UniformFailure() {
	s.register(testEmail)

	wrongPassword := s.post("/api/v1/auth/login", dto.LoginRequest{Email: testEmail, Password: "WrongPassword1"}, "")
	unknownEmail := s.post("/api/v1/auth/login", dto.LoginRequest{Email: "nobody@school.test", Password: testPassword}, "")

	s.Equal(http.StatusUnauthorized, wrongPassword.StatusCode)
	s.Equal(http.StatusUnauthorized, unknownEmail.StatusCode)
	s.Equal(
		decode[dto.ErrorResponse](s, wrongPassword).Message,
		decode[dto.ErrorResponse](s, unknownEmail).Message,
	)
}

func (s *Suite) TestSessionLifecycle() {
	s.register(testEmail)
	first := s.login(testEmail)
	second := s.login(testEmail)

	resp := s.get("/api/v1/auth/me", second.AccessToken)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	me := decode[dto.UserResponse](s, resp)
	s.Equal(testEmail, me.Email)
	s.NotNil(me.LastLoginAt)

	resp = s.get("/api/v1/auth/sessions", second.AccessToken)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	sessions := decode[dto.SessionsResponse](s, resp).Sessions
	s.Require().Len(sessions, 2)
	s.True(sessions[0].Current, "newest session first")
	s.False(sessions[1].Current)

	resp = s.post("/api/v1/auth/logout", nil, first.AccessToken)
	s.Equal(http.StatusOK, resp.StatusCode)

	s.Equal(http.StatusUnauthorized, s.get("/api/v1/auth/me", first.AccessToken).StatusCode)
	s.Equal(http.StatusOK, s.get("/api/v1/auth/me", second.AccessToken).StatusCode)

	var status string
	err := s.Postgres.DB.QueryRowContext(context.Background(),
		`SELECT status FROM sessions WHERE access_token = $1`, first.AccessToken).Scan(&status)
	s.Require().NoError(err)
	s.Equal(string(domain.SessionStatusRevoked), status)
}

func (s *Suite) TestProtectedRoutes_RequireBearer() {
	s.Equal(http.StatusUnauthorized, s.get("/api/v1/auth/me", "").StatusCode)
	s.Equal(http.StatusUnauthorized, s.get("/api/v1/auth/me", "not-a-jwt").StatusCode)
	s.Equal(http.StatusUnauthorized, s.post("/api/v1/auth/logout", nil, "").StatusCode)
}

func (s *Suite) TestOTPLogin_Success() {
	s.register(testEmail)
	challenge := s.startOTP(testEmail)

	expiresAt, err := time.Parse(time.RFC3339, challenge.ExpiresAt)
	s.Require().NoError(err)
	s.WithinDuration(time.Now().Add(2*time.Minute), expiresAt, 5*time.Second)

	resp := s.post("/api/v1/auth/otp/verify", dto.VerifyOTPRequest{
		OTPRef: challenge.OTPRef,
		OTP:    s.storedOTP(challenge.OTPRef),
	}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	auth := decode[dto.AuthResponse](s, resp)
	s.Equal(http.StatusOK, s.get("/api/v1/auth/me", auth.AccessToken).StatusCode)
}

func (s *Suite) TestOTPLogin_Failures() {
	s.register(testEmail)
	challenge := s.startOTP(testEmail)
	otp := s.storedOTP(challenge.OTPRef)

	wrong := 100000
	if otp == wrong {
		wrong++
	}

	resp := s.post("/api/v1/auth/otp/verify", dto.VerifyOTPRequest{OTPRef: challenge.OTPRef, OTP: wrong}, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal(domain.ErrOtpMismatch.Error(), decode[dto.ErrorResponse](s, resp).Message)

	resp = s.post("/api/v1/auth/otp/verify", dto.VerifyOTPRequest{OTPRef: "zzzzzz", OTP: otp}, "")
	s.Equal(http.StatusNotFound, resp.StatusCode)

	_, err := s.Postgres.DB.ExecContext(context.Background(),
		`UPDATE user_credentials SET otp_expired_at = NOW() - INTERVAL '1 second' WHERE otp_ref = $1`, challenge.OTPRef)
	s.Require().NoError(err)

	resp = s.post("/api/v1/auth/otp/verify", dto.VerifyOTPRequest{OTPRef: challenge.OTPRef, OTP: otp}, "")
	s.Equal(http.StatusGone, resp.StatusCode)
}

func (s *Suite) TestOTPResend_KeepsReference() {
	s.register(testEmail)
	challenge := s.startOTP(testEmail)

	resp := s.post("/api/v1/auth/otp/resend", dto.ResendOTPRequest{OTPRef: challenge.OTPRef}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resent := decode[dto.OTPChallengeResponse](s, resp)
	s.Equal(challenge.OTPRef, resent.OTPRef)

	resp = s.post("/api/v1/auth/otp/verify", dto.VerifyOTPRequest{
		OTPRef: resent.OTPRef,
		OTP:    s.storedOTP(resent.OTPRef),
	}, "")
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.post("/api/v1/auth/otp/resend", dto.ResendOTPRequest{OTPRef: "zzzzzz"}, "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestForgotPassword() {
	s.register(testEmail)

	resp := s.post("/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: testEmail}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var token string
	err := s.Postgres.DB.QueryRowContext(context.Background(),
		`SELECT token FROM temp_reset_tokens ORDER BY created_at DESC LIMIT 1`).Scan(&token)
	s.Require().NoError(err)
	s.Len(token, 40)

	resp = s.post("/api/v1/auth/reset-password/validate", dto.ResetTokenRequest{Token: token}, "")
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.post("/api/v1/auth/reset-password/validate", dto.ResetTokenRequest{Token: "unknown"}, "")
	s.Equal(http.StatusNotFound, resp.StatusCode)

	_, err = s.Postgres.DB.ExecContext(context.Background(),
		`UPDATE temp_reset_tokens SET expire_at = NOW() - INTERVAL '1 second' WHERE token = $1`, token)
	s.Require().NoError(err)

	resp = s.post("/api/v1/auth/reset-password/validate", dto.ResetTokenRequest{Token: token}, "")
	s.Equal(http.StatusGone, resp.StatusCode)
}

func (s *Suite) TestForgotPassword_UnknownEmail() {
	resp := s.post("/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: "nobody@school.test"}, "")
	s.Equal(http.StatusNotFound, resp.StatusCode)

	var count int
	err := s.Postgres.DB.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM temp_reset_tokens`).Scan(&count)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *Suite) TestRateLimit() {
	for i := 0; i < rateLimit; i++ {
		resp := s.post("/api/v1/auth/reset-password/validate", dto.ResetTokenRequest{Token: "unknown"}, "")
		s.Require().Equal(http.StatusNotFound, resp.StatusCode, "request %d", i+1)
	}

	resp := s.post("/api/v1/auth/reset-password/validate", dto.ResetTokenRequest{Token: "unknown"}, "")
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("Retry-After"))

	// other routes have their own budget
	resp = s.post("/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: "nobody@school.test"}, "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
}
