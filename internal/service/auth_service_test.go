package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatouch/booking-api/internal/models"
	appErrors "github.com/datatouch/booking-api/pkg/errors"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims models.JWTClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(testSecret)
	signed := signToken(t, models.JWTClaims{
		UserID:         "user-1",
		OrganizationID: "org-1",
		Role:           models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "org-1", claims.OrganizationID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewAuthService(testSecret)
	signed := signToken(t, models.JWTClaims{
		UserID:         "user-1",
		OrganizationID: "org-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, testSecret)

	_, err := svc.ValidateToken(signed)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := NewAuthService(testSecret)
	signed := signToken(t, models.JWTClaims{
		UserID:         "user-1",
		OrganizationID: "org-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, "other-secret")

	_, err := svc.ValidateToken(signed)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenMissingClaims(t *testing.T) {
	svc := NewAuthService(testSecret)
	signed := signToken(t, models.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	_, err := svc.ValidateToken(signed)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
