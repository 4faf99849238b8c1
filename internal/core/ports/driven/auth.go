package driven

import "github.com/fiscalia-labs/fiscalia-core/internal/core/domain"

// AuthAdapter handles authentication cryptographic operations.
// Credential storage is configuration, not persistence; this only
// signs, verifies and hashes.
type AuthAdapter interface {
	// Secret operations
	HashSecret(secret string) (string, error)
	VerifySecret(secret, hash string) bool

	// Token operations
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
