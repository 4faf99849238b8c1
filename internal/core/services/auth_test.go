package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven/mocks"
)

func newTestAuthService() *authService {
	credential := domain.ServiceCredential{
		ClientID:   "fiscalia-app",
		SecretHash: "app-secret",
	}
	return NewAuthService(credential, mocks.NewMockAuthAdapter()).(*authService)
}

func TestAuthService_IssueToken(t *testing.T) {
	svc := newTestAuthService()

	grant, err := svc.IssueToken(context.Background(), "fiscalia-app", "app-secret")
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.NotEmpty(t, grant.Token)
	assert.True(t, grant.ExpiresAt.After(time.Now()))
}

func TestAuthService_IssueToken_WrongSecret(t *testing.T) {
	svc := newTestAuthService()

	_, err := svc.IssueToken(context.Background(), "fiscalia-app", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_IssueToken_UnknownClient(t *testing.T) {
	svc := newTestAuthService()

	_, err := svc.IssueToken(context.Background(), "other-app", "app-secret")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_IssueToken_EmptyCredentials(t *testing.T) {
	svc := newTestAuthService()

	_, err := svc.IssueToken(context.Background(), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthService_IssueToken_NotProvisioned(t *testing.T) {
	svc := NewAuthService(domain.ServiceCredential{}, mocks.NewMockAuthAdapter())

	_, err := svc.IssueToken(context.Background(), "fiscalia-app", "app-secret")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc := newTestAuthService()

	grant, err := svc.IssueToken(context.Background(), "fiscalia-app", "app-secret")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), grant.Token)
	require.NoError(t, err)
	assert.Equal(t, "fiscalia-app", claims.ClientID)
}

func TestAuthService_ValidateToken_Invalid(t *testing.T) {
	svc := newTestAuthService()

	_, err := svc.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = svc.ValidateToken(context.Background(), "!!not-base64!!")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestAuthService_ValidateToken_Expired(t *testing.T) {
	svc := newTestAuthService()
	svc.tokenTTL = -time.Hour

	grant, err := svc.IssueToken(context.Background(), "fiscalia-app", "app-secret")
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), grant.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}
