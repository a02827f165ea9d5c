package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/sonance/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettings(t *testing.T) {
	impls := map[string]func(t *testing.T) Settings{
		"SQLite": func(t *testing.T) Settings { return NewSettingsRepository(setupTestDB(t)) },
		"Memory": func(t *testing.T) Settings { return NewMemorySettings() },
	}

	for name, newStore := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("Get Missing", func(t *testing.T) {
				store := newStore(t)
				_, err := store.Get(ctx, "nope")
				if !errors.Is(err, ErrSettingNotFound) {
					t.Errorf("expected ErrSettingNotFound, got %v", err)
				}
			})

			t.Run("Set Then Get", func(t *testing.T) {
				store := newStore(t)
				if err := store.Set(ctx, KeyVolume, "0.5"); err != nil {
					t.Fatalf("failed to set: %v", err)
				}
				if err := store.Set(ctx, KeyVolume, "0.7"); err != nil {
					t.Fatalf("failed to overwrite: %v", err)
				}

				got, err := store.Get(ctx, KeyVolume)
				if err != nil {
					t.Fatalf("failed to get: %v", err)
				}
				if got != "0.7" {
					t.Errorf("expected 0.7, got %s", got)
				}
			})

			t.Run("Delete", func(t *testing.T) {
				store := newStore(t)
				store.Set(ctx, KeyAccessToken, "tok")

				if err := store.Delete(ctx, KeyAccessToken); err != nil {
					t.Fatalf("failed to delete: %v", err)
				}
				if _, err := store.Get(ctx, KeyAccessToken); !errors.Is(err, ErrSettingNotFound) {
					t.Errorf("expected deleted key to be missing, got %v", err)
				}
				if err := store.Delete(ctx, KeyAccessToken); err != nil {
					t.Errorf("deleting a missing key should succeed, got %v", err)
				}
			})

			t.Run("List", func(t *testing.T) {
				store := newStore(t)
				store.Set(ctx, KeyVolume, "1")
				store.Set(ctx, KeyAccessToken, "tok")

				settings, err := store.List(ctx)
				if err != nil {
					t.Fatalf("failed to list: %v", err)
				}
				if len(settings) != 2 {
					t.Fatalf("expected 2 settings, got %d", len(settings))
				}
				if settings[0].Key != KeyAccessToken || settings[1].Key != KeyVolume {
					t.Errorf("expected settings ordered by key, got %+v", settings)
				}
			})
		})
	}
}

func TestPreferences(t *testing.T) {
	t.Run("Token Round Trip", func(t *testing.T) {
		prefs := NewPreferences(NewMemorySettings())

		tok, err := prefs.LoadToken()
		if err != nil || tok != "" {
			t.Fatalf("expected empty token without error, got %q, %v", tok, err)
		}

		if err := prefs.SaveToken("abc"); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		if tok, _ := prefs.LoadToken(); tok != "abc" {
			t.Errorf("expected abc, got %q", tok)
		}
	})

	t.Run("ClearToken Keeps Volume", func(t *testing.T) {
		prefs := NewPreferences(NewMemorySettings())
		prefs.SaveToken("abc")
		prefs.SaveVolume(0.35)

		if err := prefs.ClearToken(); err != nil {
			t.Fatalf("failed to clear token: %v", err)
		}
		if tok, _ := prefs.LoadToken(); tok != "" {
			t.Errorf("expected token cleared, got %q", tok)
		}
		if v, ok := prefs.LoadVolume(); !ok || v != 0.35 {
			t.Errorf("expected volume 0.35 to survive logout, got %v (%v)", v, ok)
		}
	})

	t.Run("Volume Survives Reopen", func(t *testing.T) {
		db := setupTestDB(t)
		if err := NewPreferences(NewSettingsRepository(db)).SaveVolume(0.35); err != nil {
			t.Fatalf("failed to save volume: %v", err)
		}

		v, ok := NewPreferences(NewSettingsRepository(db)).LoadVolume()
		if !ok || v != 0.35 {
			t.Errorf("expected 0.35 after re-initialization, got %v (%v)", v, ok)
		}
	})

	t.Run("Invalid Volume", func(t *testing.T) {
		store := NewMemorySettings()
		prefs := NewPreferences(store)

		if err := prefs.SaveVolume(1.2); err == nil {
			t.Error("expected out-of-range volume to be rejected")
		}

		store.Set(context.Background(), KeyVolume, "loud")
		if _, ok := prefs.LoadVolume(); ok {
			t.Error("expected unparsable volume to be ignored")
		}
	})
}
