package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// CacheEntry is a memoized (query, context) → answer pair.
type CacheEntry struct {
	CacheKey     string            `json:"cache_key"`
	SessionID    string            `json:"session_id"`
	ResponseText string            `json:"response_text"`
	Metadata     map[string]string `json:"response_metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// DefaultCacheTTL is how long answers stay reusable.
const DefaultCacheTTL = 7 * 24 * time.Hour

// CacheKey computes the content address of a (query, context) pair:
// SHA256(query + "|" + JSON(context)), hex encoded, 64 characters.
// encoding/json marshals map keys in ascending order, so semantically
// identical contexts collapse to one key regardless of insertion order.
func CacheKey(query string, context map[string]string) string {
	ctxJSON, err := json.Marshal(context)
	if err != nil {
		// map[string]string cannot fail to marshal; keep the signature simple
		ctxJSON = []byte("{}")
	}
	sum := sha256.Sum256([]byte(query + "|" + string(ctxJSON)))
	return hex.EncodeToString(sum[:])
}
