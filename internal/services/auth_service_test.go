package services

import (
	"testing"
	"time"

	"north-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenCarriesUserClaims(t *testing.T) {
	svc := NewAuthService(nil, nil, nil, "test-secret", time.Hour)
	user := &models.User{ID: 42, Email: "alice@example.com"}

	signed, err := svc.IssueToken(user)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["user_id"])
	assert.Equal(t, "alice@example.com", claims["email"])

	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.Greater(t, int64(exp), time.Now().Unix())
}

func TestIssueTokenRejectsWrongSecret(t *testing.T) {
	svc := NewAuthService(nil, nil, nil, "test-secret", time.Hour)

	signed, err := svc.IssueToken(&models.User{ID: 1, Email: "bob@example.com"})
	require.NoError(t, err)

	_, err = jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	})
	assert.Error(t, err)
}
