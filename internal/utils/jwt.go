package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/school-auth-service/internal/domain"
)

// accessClaims is the signed payload of an access token
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates signed, time-limited access tokens
type JWTManager struct {
	secret            []byte
	accessTokenExpiry time.Duration
	clock             Clock
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTokenExpiry time.Duration, clock Clock) *JWTManager {
	return &JWTManager{
		secret:            []byte(secret),
		accessTokenExpiry: accessTokenExpiry,
		clock:             clock,
	}
}

// Issue generates a new access token for the given profile
func (j *JWTManager) Issue(profile domain.UserProfile) (string, error) {
	if profile.UserID == "" {
		return "", fmt.Errorf("cannot issue token without subject")
	}

	now := j.clock.Now()
	claims := accessClaims{
		Email: profile.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.UserID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate validates a JWT token and returns its claims.
// Errors wrap domain.ErrTokenExpired or domain.ErrTokenInvalid.
func (j *JWTManager) Validate(tokenString string) (*domain.TokenClaims, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithTimeFunc(j.clock.Now),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrTokenInvalid)
	}

	tokenClaims := &domain.TokenClaims{
		UserID: claims.Subject,
		Email:  claims.Email,
		ID:     claims.ID,
		Exp:    claims.ExpiresAt.Unix(),
	}
	if claims.IssuedAt != nil {
		tokenClaims.Iat = claims.IssuedAt.Unix()
	}

	return tokenClaims, nil
}

// AccessTokenExpiry returns the access token lifetime
func (j *JWTManager) AccessTokenExpiry() time.Duration {
	return j.accessTokenExpiry
}
