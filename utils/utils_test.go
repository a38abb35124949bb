package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
	assert.False(t, CheckPasswordHash("correct horse battery staple", "not-a-hash"))
}

func TestGenerateAdminToken(t *testing.T) {
	secret := []byte("test-secret")
	tokenStr, err := GenerateAdminToken(secret, "admin@example.com", time.Hour)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "admin@example.com", claims["sub"])
	assert.Equal(t, "admin", claims["role"])
}

func TestGenerateAdminTokenExpires(t *testing.T) {
	secret := []byte("test-secret")
	tokenStr, err := GenerateAdminToken(secret, "admin@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	assert.Error(t, err)
}
