package postgres

import (
	"errors"
	"testing"
)

func TestSecretEncryptor_RoundTrip(t *testing.T) {
	key := []byte("01234567890123456789012345678901")

	encryptor, err := NewSecretEncryptor(key)
	if err != nil {
		t.Fatalf("NewSecretEncryptor: %v", err)
	}

	original := settingsSecrets{
		EmbeddingAPIKey: "sk-embed-abc123",
		FallbackAPIKeys: []string{"", "sk-fallback-xyz"},
		ChatAPIKey:      "sk-chat-def456",
	}

	blob, err := encryptor.Encrypt(original)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if len(blob) < 1+nonceSize {
		t.Fatalf("blob too short: %d bytes", len(blob))
	}
	if blob[0] != secretVersion {
		t.Errorf("version byte: got %d, want %d", blob[0], secretVersion)
	}

	var decrypted settingsSecrets
	if err := encryptor.Decrypt(blob, &decrypted); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}

	if decrypted.EmbeddingAPIKey != original.EmbeddingAPIKey {
		t.Errorf("EmbeddingAPIKey: got %q, want %q", decrypted.EmbeddingAPIKey, original.EmbeddingAPIKey)
	}
	if decrypted.ChatAPIKey != original.ChatAPIKey {
		t.Errorf("ChatAPIKey: got %q, want %q", decrypted.ChatAPIKey, original.ChatAPIKey)
	}
	if len(decrypted.FallbackAPIKeys) != 2 || decrypted.FallbackAPIKeys[1] != "sk-fallback-xyz" {
		t.Errorf("FallbackAPIKeys: got %v", decrypted.FallbackAPIKeys)
	}
}

func TestSecretEncryptor_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"too short", 16},
		{"too long", 64},
		{"empty", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := make([]byte, tt.keySize)
			_, err := NewSecretEncryptor(key)
			if !errors.Is(err, ErrInvalidKeySize) {
				t.Errorf("expected ErrInvalidKeySize, got %v", err)
			}
		})
	}
}

func TestSecretEncryptor_WrongKey(t *testing.T) {
	enc1, _ := NewSecretEncryptor([]byte("01234567890123456789012345678901"))
	enc2, _ := NewSecretEncryptor([]byte("10987654321098765432109876543210"))

	blob, err := enc1.Encrypt(settingsSecrets{ChatAPIKey: "sk-secret"})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	var out settingsSecrets
	if err := enc2.Decrypt(blob, &out); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed with wrong key, got %v", err)
	}
}

func TestSecretEncryptor_CorruptBlob(t *testing.T) {
	enc, _ := NewSecretEncryptor([]byte("01234567890123456789012345678901"))

	var out settingsSecrets
	if err := enc.Decrypt([]byte{secretVersion, 0x01}, &out); !errors.Is(err, ErrInvalidBlobSize) {
		t.Errorf("expected ErrInvalidBlobSize, got %v", err)
	}

	blob, _ := enc.Encrypt(settingsSecrets{ChatAPIKey: "sk-secret"})
	blob[0] = 0x7f
	if err := enc.Decrypt(blob, &out); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}
