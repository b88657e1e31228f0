package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSettingNotFound is returned by Get for unknown keys.
var ErrSettingNotFound = errors.New("setting not found")

const FieldEncryptionSaltKey = "field_encryption_salt"

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %q: %w", key, ErrSettingNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetOrInit returns the stored value for key. If none exists, gen is called
// and its result stored; when two callers race, the first write wins and
// both observe it.
func (s *SettingsStore) GetOrInit(key string, gen func() (string, error)) (string, error) {
	value, err := s.Get(key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrSettingNotFound) {
		return "", err
	}

	value, err = gen()
	if err != nil {
		return "", fmt.Errorf("generate setting %q: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("init setting %q: %w", key, err)
	}
	return s.Get(key)
}
