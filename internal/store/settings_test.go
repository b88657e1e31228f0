package store

import (
	"errors"
	"testing"

	"github.com/dukerupert/ephemera/internal/database"
)

func setupSettingsTestDB(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettingsStore(db)
}

func TestSettingsGetMissing(t *testing.T) {
	s := setupSettingsTestDB(t)

	_, err := s.Get("nope")
	if !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("err = %v, want ErrSettingNotFound", err)
	}
}

func TestSettingsSetAndGet(t *testing.T) {
	s := setupSettingsTestDB(t)

	if err := s.Set("k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "v2" {
		t.Errorf("value = %q, want %q", got, "v2")
	}
}

func TestSettingsGetOrInit(t *testing.T) {
	s := setupSettingsTestDB(t)

	calls := 0
	gen := func() (string, error) {
		calls++
		return "generated", nil
	}

	v, err := s.GetOrInit(FieldEncryptionSaltKey, gen)
	if err != nil {
		t.Fatalf("first GetOrInit: %v", err)
	}
	if v != "generated" {
		t.Errorf("value = %q, want %q", v, "generated")
	}

	v, err = s.GetOrInit(FieldEncryptionSaltKey, gen)
	if err != nil {
		t.Fatalf("second GetOrInit: %v", err)
	}
	if v != "generated" {
		t.Errorf("value = %q, want %q", v, "generated")
	}
	if calls != 1 {
		t.Errorf("generator called %d times, want 1", calls)
	}
}

func TestSettingsGetOrInitGeneratorError(t *testing.T) {
	s := setupSettingsTestDB(t)

	_, err := s.GetOrInit("k", func() (string, error) { return "", errors.New("boom") })
	if err == nil {
		t.Fatal("expected error from generator")
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("failed init should not store a value, err = %v", err)
	}
}
