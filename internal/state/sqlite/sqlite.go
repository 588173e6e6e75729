// Package sqlite provides the SQLite-backed client state store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JohnnyCleto/atlaschat/internal/chat"
	"github.com/JohnnyCleto/atlaschat/internal/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store implements state.Store on a local SQLite file.
type Store struct {
	db *sql.DB
}

// New opens (and if needed initializes) the state database at path.
// Use ":memory:" for an ephemeral store.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ActiveRoom returns the last selected room, or "" when unset.
func (s *Store) ActiveRoom(ctx context.Context) (string, error) {
	value, err := s.get(ctx, state.KeyRoom)
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetActiveRoom records room as the active selection.
func (s *Store) SetActiveRoom(ctx context.Context, room string) error {
	return s.set(ctx, state.KeyRoom, room)
}

// Profile returns the active profile, zero when unset.
func (s *Store) Profile(ctx context.Context) (chat.Profile, error) {
	value, err := s.get(ctx, state.KeyProfile)
	if err != nil {
		return chat.Profile{}, err
	}
	if value == "" {
		return chat.Profile{}, nil
	}

	var profile chat.Profile
	if err := json.Unmarshal([]byte(value), &profile); err != nil {
		return chat.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

// SetProfile records the active profile.
func (s *Store) SetProfile(ctx context.Context, profile chat.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.set(ctx, state.KeyProfile, string(data))
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM client_state WHERE key = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO client_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}
