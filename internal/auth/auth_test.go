package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, 24*time.Hour)

	token, err := svc.GenerateAccessToken(Claims{ShiftID: "5dcd1d31363c741b7044de0e", DriverCode: "EES2293", VehicleCode: "VH15-0255"})
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.IsDriver())
	assert.False(t, claims.IsAdmin)
	assert.Equal(t, "EES2293", claims.DriverCode)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, time.Hour)
	other := NewTokenService("other", time.Hour, time.Hour)
	expired := NewTokenService("secret", -time.Minute, time.Hour)

	foreign, err := other.GenerateAccessToken(Claims{IsAdmin: true})
	require.NoError(t, err)
	_, err = svc.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	old, err := expired.GenerateAccessToken(Claims{IsAdmin: true})
	require.NoError(t, err)
	_, err = svc.Verify(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenOutlivesAccessToken(t *testing.T) {
	svc := NewTokenService("secret", time.Minute, 48*time.Hour)

	token, err := svc.GenerateRefreshToken(Claims{AdminID: "a1", IsAdmin: true})
	require.NoError(t, err)
	claims, err := svc.VerifyRefresh(token)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.After(time.Now().Add(47*time.Hour)))
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, 24*time.Hour)

	refresh, err := svc.GenerateRefreshToken(Claims{AdminID: "a1", IsAdmin: true})
	require.NoError(t, err)
	_, err = svc.Verify(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, err := svc.GenerateAccessToken(Claims{AdminID: "a1", IsAdmin: true})
	require.NoError(t, err)
	_, err = svc.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Caller-supplied types are overwritten when signing.
	forged, err := svc.GenerateAccessToken(Claims{AdminID: "a1", IsAdmin: true, TokenType: TokenTypeRefresh})
	require.NoError(t, err)
	claims, err := svc.Verify(forged)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}
