package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService("secret")

	token, err := svc.Sign(models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestTokenServiceRejects(t *testing.T) {
	issuer := NewTokenService("secret")
	token, err := issuer.Sign(models.JWTClaims{UserID: "admin-1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService("other").ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	late := NewTokenService("secret")
	late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = late.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	anonymous, err := issuer.Sign(models.JWTClaims{}, time.Hour)
	require.NoError(t, err)
	_, err = issuer.ValidateToken(anonymous)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	unknownRole, err := issuer.Sign(models.JWTClaims{UserID: "parent-1", Role: "PARENT"}, time.Hour)
	require.NoError(t, err)
	_, err = issuer.ValidateToken(unknownRole)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
