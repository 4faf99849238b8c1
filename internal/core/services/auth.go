package services

import (
	"context"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService exchanges the configured service credential for bearer
// tokens. There is one credential; callers are other services, not
// end users.
type authService struct {
	credential  domain.ServiceCredential
	authAdapter driven.AuthAdapter
	tokenTTL    time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(credential domain.ServiceCredential, authAdapter driven.AuthAdapter) driving.AuthService {
	return &authService{
		credential:  credential,
		authAdapter: authAdapter,
		tokenTTL:    24 * time.Hour,
	}
}

// IssueToken verifies the credential and returns a signed token
func (s *authService) IssueToken(ctx context.Context, clientID, clientSecret string) (*domain.TokenGrant, error) {
	if clientID == "" || clientSecret == "" {
		return nil, domain.ErrInvalidInput
	}
	if !s.credential.IsConfigured() {
		return nil, domain.ErrUnauthorized
	}
	if clientID != s.credential.ClientID {
		return nil, domain.ErrUnauthorized
	}
	if !s.authAdapter.VerifySecret(clientSecret, s.credential.SecretHash) {
		return nil, domain.ErrUnauthorized
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := s.authAdapter.GenerateToken(&domain.TokenClaims{
		ClientID:  clientID,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenGrant{Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses and validates a bearer token
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	return claims, nil
}
