package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SettingsStore = (*SettingsStore)(nil)

// settingsSecrets is the encrypted part of the AI configuration: the
// provider API keys, keyed separately from the JSON settings column.
type settingsSecrets struct {
	EmbeddingAPIKey string   `json:"embedding_api_key,omitempty"`
	FallbackAPIKeys []string `json:"fallback_api_keys,omitempty"`
	ChatAPIKey      string   `json:"chat_api_key,omitempty"`
}

// SettingsStore implements driven.SettingsStore using PostgreSQL.
// API keys are stored AES-256-GCM encrypted in a separate column so a
// dump of the settings JSON never exposes credentials.
type SettingsStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewSettingsStore creates a new SettingsStore
func NewSettingsStore(db *DB, encryptor *SecretEncryptor) *SettingsStore {
	return &SettingsStore{db: db, encryptor: encryptor}
}

// GetAISettings retrieves the provider configuration
func (s *SettingsStore) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	var settingsJSON []byte
	var secretsBlob []byte
	var updatedAt time.Time

	err := s.db.QueryRowContext(ctx,
		`SELECT settings, secrets, updated_at FROM ai_settings WHERE id = 1`).
		Scan(&settingsJSON, &secretsBlob, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get ai settings: %v", domain.ErrStorage, err)
	}

	settings := &domain.AISettings{}
	if err := json.Unmarshal(settingsJSON, settings); err != nil {
		return nil, fmt.Errorf("unmarshal ai settings: %w", err)
	}
	settings.UpdatedAt = updatedAt

	if len(secretsBlob) > 0 && s.encryptor != nil {
		secrets := settingsSecrets{}
		if err := s.encryptor.Decrypt(secretsBlob, &secrets); err != nil {
			return nil, fmt.Errorf("decrypt api keys: %w", err)
		}
		settings.Embedding.APIKey = secrets.EmbeddingAPIKey
		settings.Chat.APIKey = secrets.ChatAPIKey
		for i := range settings.Fallbacks {
			if i < len(secrets.FallbackAPIKeys) {
				settings.Fallbacks[i].APIKey = secrets.FallbackAPIKeys[i]
			}
		}
	}

	return settings, nil
}

// SaveAISettings creates or replaces the provider configuration
func (s *SettingsStore) SaveAISettings(ctx context.Context, settings *domain.AISettings) error {
	// The APIKey fields carry `json:"-"` so the settings column never
	// sees them even accidentally.
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal ai settings: %w", err)
	}

	var secretsBlob []byte
	if s.encryptor != nil {
		secrets := settingsSecrets{
			EmbeddingAPIKey: settings.Embedding.APIKey,
			ChatAPIKey:      settings.Chat.APIKey,
		}
		for _, fb := range settings.Fallbacks {
			secrets.FallbackAPIKeys = append(secrets.FallbackAPIKeys, fb.APIKey)
		}
		secretsBlob, err = s.encryptor.Encrypt(secrets)
		if err != nil {
			return fmt.Errorf("encrypt api keys: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ai_settings (id, settings, secrets, updated_at)
		 VALUES (1, $1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET
			settings = EXCLUDED.settings,
			secrets = EXCLUDED.secrets,
			updated_at = EXCLUDED.updated_at`,
		settingsJSON, secretsBlob)
	if err != nil {
		return fmt.Errorf("%w: save ai settings: %v", domain.ErrStorage, err)
	}
	return nil
}
