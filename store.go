package readdash

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

const (
	apiURLKey        = "analytics_api_url"
	sessionSecretKey = "session_secret"
	schemaVersionKey = "schema_version"
)

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

// Store wraps a SQLite database holding dashboard settings. It is the
// durable dashboard.ConfigStore: the API URL survives process restarts.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	// WAL lets the CLI read settings while a server holds the database open.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure settings db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`)
	return err
}

// migrate applies incremental schema migrations based on a version stored in the settings table.
func (s *Store) migrate() error {
	ctx := context.Background()
	verStr, _, err := s.GetSetting(ctx, schemaVersionKey)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, currentSchemaVersion)
	}

	if version < 1 {
		version = 1
	}

	return s.SetSetting(ctx, schemaVersionKey, strconv.Itoa(version))
}

// GetSetting retrieves a setting by key. ok is false when the key was never written.
func (s *Store) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// Load returns the persisted statistics API URL.
func (s *Store) Load(ctx context.Context) (string, bool, error) {
	url, ok, err := s.GetSetting(ctx, apiURLKey)
	if err != nil {
		return "", false, fmt.Errorf("load api url: %w", err)
	}
	return url, ok, nil
}

// Save persists the statistics API URL, replacing any previous value.
func (s *Store) Save(ctx context.Context, url string) error {
	if err := s.SetSetting(ctx, apiURLKey, url); err != nil {
		return fmt.Errorf("save api url: %w", err)
	}
	return nil
}

// InitSessionSecret returns the persisted cookie secret, generating and
// storing a random one on first use.
func (s *Store) InitSessionSecret(ctx context.Context) (string, error) {
	secret, _, err := s.GetSetting(ctx, sessionSecretKey)
	if err != nil {
		return "", fmt.Errorf("read session secret: %w", err)
	}
	if secret != "" {
		return secret, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	secret = hex.EncodeToString(b)
	if err := s.SetSetting(ctx, sessionSecretKey, secret); err != nil {
		return "", fmt.Errorf("store session secret: %w", err)
	}
	return secret, nil
}
