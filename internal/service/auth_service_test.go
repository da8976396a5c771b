package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"docslice/internal/config"
	"docslice/internal/domain"
	"docslice/internal/service"
)

func setupAuthService(t *testing.T) service.AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse battery staple"), bcrypt.MinCost)
	assert.NoError(t, err)

	return service.NewAuthService(
		config.OperatorConfig{
			Email:        "operator@example.com",
			PasswordHash: string(hash),
		},
		config.JWTConfig{
			Secret:             "test-secret-key",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 24 * time.Hour,
			Issuer:             "docslice-test",
		},
	)
}

func TestAuthService_Login(t *testing.T) {
	svc := setupAuthService(t)

	pair, err := svc.Login(context.Background(), service.LoginInput{
		Email:    "operator@example.com",
		Password: "correct horse battery staple",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.ExpiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, "operator@example.com", claims.Email)
}

func TestAuthService_LoginEmailCaseInsensitive(t *testing.T) {
	svc := setupAuthService(t)

	_, err := svc.Login(context.Background(), service.LoginInput{
		Email:    "Operator@Example.COM",
		Password: "correct horse battery staple",
	})
	assert.NoError(t, err)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	svc := setupAuthService(t)

	_, err := svc.Login(context.Background(), service.LoginInput{
		Email:    "operator@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_LoginUnknownEmail(t *testing.T) {
	svc := setupAuthService(t)

	_, err := svc.Login(context.Background(), service.LoginInput{
		Email:    "intruder@example.com",
		Password: "correct horse battery staple",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_RefreshToken(t *testing.T) {
	svc := setupAuthService(t)

	pair, err := svc.Login(context.Background(), service.LoginInput{
		Email:    "operator@example.com",
		Password: "correct horse battery staple",
	})
	assert.NoError(t, err)

	next, err := svc.RefreshToken(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)

	_, err = svc.ValidateToken(next.AccessToken)
	assert.NoError(t, err)
}

func TestAuthService_RefreshRejectsAccessToken(t *testing.T) {
	svc := setupAuthService(t)

	pair, err := svc.Login(context.Background(), service.LoginInput{
		Email:    "operator@example.com",
		Password: "correct horse battery staple",
	})
	assert.NoError(t, err)

	// Audience claims keep the two token kinds from substituting for
	// each other.
	_, err = svc.RefreshToken(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.ValidateToken(pair.RefreshToken)
	assert.Error(t, err)
}

func TestAuthService_ValidateGarbageToken(t *testing.T) {
	svc := setupAuthService(t)

	_, err := svc.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}
