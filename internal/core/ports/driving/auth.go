package driving

import (
	"context"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// AuthService exchanges the service credential for bearer tokens and
// validates them on incoming requests.
type AuthService interface {
	// IssueToken verifies the credential and returns a signed token
	IssueToken(ctx context.Context, clientID, clientSecret string) (*domain.TokenGrant, error)

	// ValidateToken parses and validates a bearer token
	ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error)
}
