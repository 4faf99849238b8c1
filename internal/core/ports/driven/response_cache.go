package driven

import (
	"context"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// ResponseCache memoizes (query, context) → answer pairs per chat session.
// Entries from another session are never returned, so one user's
// contextual answer cannot leak verbatim into another conversation.
type ResponseCache interface {
	// Get returns the cached entry for the session's (query, context)
	// pair, or nil when absent or expired. Lookup failures degrade to a
	// miss; the cache feeds a best-effort path.
	Get(ctx context.Context, sessionID, query string, context map[string]string) (*domain.CacheEntry, error)

	// Put upserts the answer under the pair's cache key with the given TTL.
	// A non-positive ttl uses domain.DefaultCacheTTL.
	Put(ctx context.Context, sessionID, query string, context map[string]string, response string, metadata map[string]string, ttl time.Duration) error

	// InvalidateSession drops all cached answers for a session
	InvalidateSession(ctx context.Context, sessionID string) error

	// Ping checks the cache backend is healthy
	Ping(ctx context.Context) error
}
