package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/dto"
	"go.uber.org/zap"
)

type errorMapping struct {
	target error
	status int
	title  string
}

// Order matters: the first matching sentinel wins
var errorMappings = []errorMapping{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrTokenInvalid, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrTokenExpired, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrTokenRevoked, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrOtpMismatch, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrOtpNotFound, http.StatusNotFound, "Not found"},
	{domain.ErrOtpExpired, http.StatusGone, "Gone"},
	{domain.ErrUserNotFound, http.StatusNotFound, "Not found"},
	{domain.ErrResetTokenNotFound, http.StatusNotFound, "Not found"},
	{domain.ErrResetTokenExpired, http.StatusGone, "Gone"},
	{domain.ErrUserExists, http.StatusConflict, "Conflict"},
	{domain.ErrInvalidEmail, http.StatusBadRequest, "Bad request"},
	{domain.ErrWeakPassword, http.StatusBadRequest, "Bad request"},
	{domain.ErrNotificationFailed, http.StatusBadGateway, "Bad gateway"},
}

// statusFor maps a service error to its mapping; ok is false for
// errors without a sentinel
func statusFor(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	return errorMapping{status: http.StatusInternalServerError, title: "Internal server error"}, false
}

// writeError renders a service error with the sentinel's text only, so
// wrapped infrastructure detail never reaches the caller
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	m, known := statusFor(err)

	message := "An unexpected error occurred"
	if known {
		message = m.target.Error()
	} else {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.JSON(m.status, dto.ErrorResponse{
		Error:   m.title,
		Message: message,
	})
}

func writeValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Validation failed",
		Message: err.Error(),
	})
}
