package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/holon/pkg/ports"
)

// EnvelopeKey is the only key of a provider entry written by the encryption
// middleware.
const EnvelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.CredentialStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that stores each provider's
// credentials as one AES-GCM sealed envelope.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.CredentialStore) ports.CredentialStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Set(ctx context.Context, provider string, values map[string]string) error {
	plainText, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	envelope := map[string]string{
		EnvelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return m.next.Set(ctx, provider, envelope)
}

func (m *encryptionMiddleware) Get(ctx context.Context, provider string) (map[string]string, error) {
	envelope, err := m.next.Get(ctx, provider)
	if err != nil {
		return nil, err
	}

	encryptedStr, ok := envelope[EnvelopeKey]
	if !ok {
		// Plain entries written before encryption was enabled are refused.
		return nil, fmt.Errorf("credentials of %s are missing the encrypted envelope", provider)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials of %s: %w", provider, err)
	}

	var values map[string]string
	if err := json.Unmarshal(plainText, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted credentials: %w", err)
	}
	return values, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, provider string) error {
	return m.next.Delete(ctx, provider)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// ParseKey decodes a 32-byte key written as base64 or hex.
func ParseKey(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if key, err := base64.StdEncoding.DecodeString(text); err == nil && len(key) == 32 {
		return key, nil
	}
	if key, err := hex.DecodeString(text); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, errors.New("key must be 32 bytes, encoded as base64 or hex")
}

// LoadKeys reads an encryption config from a key file: the first non-empty
// line is the active key, the following ones are fallback keys. Lines
// starting with # are ignored.
func LoadKeys(path string) (EncryptionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EncryptionConfig{}, fmt.Errorf("read key file: %w", err)
	}

	var cfg EncryptionConfig
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, err := ParseKey(line)
		if err != nil {
			return EncryptionConfig{}, fmt.Errorf("%s:%d: %w", path, n+1, err)
		}
		if cfg.ActiveKey == nil {
			cfg.ActiveKey = key
		} else {
			cfg.FallbackKeys = append(cfg.FallbackKeys, key)
		}
	}
	if cfg.ActiveKey == nil {
		return EncryptionConfig{}, fmt.Errorf("%s: no key found", path)
	}
	return cfg, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
