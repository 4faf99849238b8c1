package domain

import "time"

// TokenClaims carries the identity inside an issued bearer token
type TokenClaims struct {
	ClientID  string `json:"client_id"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// IsExpired returns true when the token's lifetime has passed
func (c *TokenClaims) IsExpired() bool {
	return time.Now().Unix() > c.ExpiresAt
}

// TokenGrant is the result of a successful credential exchange
type TokenGrant struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ServiceCredential is the single API credential the service accepts.
// SecretHash is a bcrypt hash, never the plaintext secret.
type ServiceCredential struct {
	ClientID   string
	SecretHash string
}

// IsConfigured returns true when a credential has been provisioned
func (c *ServiceCredential) IsConfigured() bool {
	return c != nil && c.ClientID != "" && c.SecretHash != ""
}
