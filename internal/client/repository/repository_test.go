package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charadev96/galleryclient/internal/client/domain"
	shared "github.com/charadev96/galleryclient/internal/shared/domain"
)

func TestRepositories(t *testing.T) {
	drivers := map[string]string{
		DriverTOML:   "session.toml",
		DriverBolt:   "session.db",
		DriverSQLite: "session.sqlite",
	}
	for driver, file := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "nested", file)
			repo, closer, err := Open(ctx, driver, path)
			if err != nil {
				t.Fatalf("Open err: %v", err)
			}
			defer closer.Close()

			if _, err := repo.Get(ctx, domain.TokenKey); !errors.Is(err, shared.ErrNotExist) {
				t.Fatalf("expected ErrNotExist on empty repository, got %v", err)
			}
			if err := repo.Set(ctx, domain.TokenKey, "abc123"); err != nil {
				t.Fatalf("Set err: %v", err)
			}
			if err := repo.Set(ctx, domain.TokenKey, "def456"); err != nil {
				t.Fatalf("Set err: %v", err)
			}
			v, err := repo.Get(ctx, domain.TokenKey)
			if err != nil {
				t.Fatalf("Get err: %v", err)
			}
			if v != "def456" {
				t.Fatalf("expected def456, got %q", v)
			}
			if err := repo.Delete(ctx, domain.TokenKey); err != nil {
				t.Fatalf("Delete err: %v", err)
			}
			if err := repo.Delete(ctx, domain.TokenKey); !errors.Is(err, shared.ErrNotExist) {
				t.Fatalf("expected ErrNotExist on second delete, got %v", err)
			}
			if _, err := repo.Get(ctx, domain.TokenKey); !errors.Is(err, shared.ErrNotExist) {
				t.Fatalf("expected ErrNotExist after delete, got %v", err)
			}
		})
	}
}

func TestRepositorySurvivesReopen(t *testing.T) {
	for _, driver := range []string{DriverTOML, DriverBolt, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "session")

			repo, closer, err := Open(ctx, driver, path)
			if err != nil {
				t.Fatalf("Open err: %v", err)
			}
			if err := repo.Set(ctx, domain.TokenKey, "abc123"); err != nil {
				t.Fatalf("Set err: %v", err)
			}
			closer.Close()

			repo, closer, err = Open(ctx, driver, path)
			if err != nil {
				t.Fatalf("reopen err: %v", err)
			}
			defer closer.Close()
			v, err := repo.Get(ctx, domain.TokenKey)
			if err != nil || v != "abc123" {
				t.Fatalf("expected persisted token, got %q, %v", v, err)
			}
		})
	}
}

func TestTOMLRepositoryFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.toml")
	repo := &TOMLTokenRepository{FilePath: path}

	if err := repo.Set(ctx, domain.TokenKey, "abc123"); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat err: %v", err)
	}
	if info.Mode().Perm() != permRepository {
		t.Fatalf("expected mode %o, got %o", permRepository, info.Mode().Perm())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile err: %v", err)
	}
	if !strings.Contains(string(data), `auth_token = "abc123"`) {
		t.Fatalf("unexpected file content:\n%s", data)
	}

	// Edits made by another process are picked up.
	other := &TOMLTokenRepository{FilePath: path}
	if err := other.Delete(ctx, domain.TokenKey); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	later := info.ModTime().Add(time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes err: %v", err)
	}
	if _, err := repo.Get(ctx, domain.TokenKey); !errors.Is(err, shared.ErrNotExist) {
		t.Fatalf("expected ErrNotExist after external delete, got %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, _, err := Open(context.Background(), "redis", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
