package workspace

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sidekick-ai/sidekick/core"
)

// ErrSecretNotFound is returned by SecretStore.Get for unknown keys.
var ErrSecretNotFound = errors.New("secret not found")

// SecretKeyPrefix namespaces every stored secret key.
const SecretKeyPrefix = "sidekick"

// SecretKey builds the canonical storage key for a provider's API key:
// "sidekick.<provider-lowercase>".
func SecretKey(providerID string) string {
	return SecretKeyPrefix + "." + core.CanonicalProviderID(providerID)
}

// SecretStore is the opaque key/value store for provider secrets. API keys
// live exclusively here, never in plain configuration.
type SecretStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// SQLiteSecretStore persists secrets in a local SQLite database, encrypted
// at rest with AES-GCM.
type SQLiteSecretStore struct {
	db  *sql.DB
	box *cipherBox
}

// NewSQLiteSecretStore opens (or creates) the database at path and prepares
// the schema. key must be 16, 24 or 32 bytes.
func NewSQLiteSecretStore(path string, key []byte) (*SQLiteSecretStore, error) {
	box, err := newCipherBox(key)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create secret store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open secret store: %w", err)
	}
	// SQLite does not support concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	schema := `
	CREATE TABLE IF NOT EXISTS secrets (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize secret store schema: %w", err)
	}

	return &SQLiteSecretStore{db: db, box: box}, nil
}

// Get returns the decrypted secret for key, or ErrSecretNotFound.
func (s *SQLiteSecretStore) Get(key string) (string, error) {
	var blob string
	err := s.db.QueryRow(`SELECT value FROM secrets WHERE name = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	plaintext, err := s.box.open(blob)
	if err != nil {
		return "", fmt.Errorf("decrypt secret: %w", err)
	}
	return string(plaintext), nil
}

// Set stores (or replaces) a secret. Last write wins.
func (s *SQLiteSecretStore) Set(key, value string) error {
	blob, err := s.box.seal([]byte(value))
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO secrets (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, blob, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write secret: %w", err)
	}
	return nil
}

// Delete removes a secret. Deleting an unknown key is a no-op.
func (s *SQLiteSecretStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM secrets WHERE name = ?`, key); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteSecretStore) Close() error { return s.db.Close() }

// MemorySecretStore is a volatile SecretStore for tests and ephemeral use.
type MemorySecretStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemorySecretStore constructs an empty in-memory store.
func NewMemorySecretStore() *MemorySecretStore {
	return &MemorySecretStore{secrets: make(map[string]string)}
}

// Get returns the secret for key, or ErrSecretNotFound.
func (s *MemorySecretStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.secrets[key]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

// Set stores a secret.
func (s *MemorySecretStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = value
	return nil
}

// Delete removes a secret.
func (s *MemorySecretStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, key)
	return nil
}
