package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	shared "github.com/charadev96/galleryclient/internal/shared/domain"
)

const (
	permRepository = 0600
	permDirectory  = 0700
)

// TOMLTokenRepository keeps values in a [values] table of a TOML file. The
// file is reloaded when it changed on disk since the last access and is
// created on first write.
type TOMLTokenRepository struct {
	FilePath string

	mu         sync.Mutex
	data       schema
	modifiedAt time.Time
}

type schema struct {
	Values map[string]string `toml:"values"`
}

func (r *TOMLTokenRepository) Get(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.refresh(); err != nil {
		return "", err
	}
	value, ok := r.data.Values[key]
	if !ok {
		return "", fmt.Errorf("failed to get value '%s': %w", key, shared.ErrNotExist)
	}
	return value, nil
}

func (r *TOMLTokenRepository) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.refresh(); err != nil {
		return err
	}
	if r.data.Values == nil {
		r.data.Values = make(map[string]string)
	}
	r.data.Values[key] = value
	return r.save()
}

func (r *TOMLTokenRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.refresh(); err != nil {
		return err
	}
	if _, ok := r.data.Values[key]; !ok {
		return fmt.Errorf("failed to delete value '%s': %w", key, shared.ErrNotExist)
	}
	delete(r.data.Values, key)
	return r.save()
}

func (r *TOMLTokenRepository) refresh() error {
	info, err := os.Stat(r.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		r.data = schema{}
		r.modifiedAt = time.Time{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file timestamp: %w", err)
	}
	modTime := info.ModTime()
	if r.modifiedAt.Equal(modTime) {
		return nil
	}
	data := schema{}
	if _, err := toml.DecodeFile(r.FilePath, &data); err != nil {
		return fmt.Errorf("failed to load repository: %w", err)
	}
	r.data = data
	r.modifiedAt = modTime
	return nil
}

func (r *TOMLTokenRepository) save() error {
	if err := os.MkdirAll(filepath.Dir(r.FilePath), permDirectory); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}
	file, err := os.OpenFile(r.FilePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, permRepository)
	if err != nil {
		return fmt.Errorf("failed to save repository: %w", err)
	}
	defer file.Close()
	enc := toml.NewEncoder(file)
	enc.Indent = ""
	if err := enc.Encode(r.data); err != nil {
		return fmt.Errorf("failed to encode repository: %w", err)
	}
	if info, err := file.Stat(); err == nil {
		r.modifiedAt = info.ModTime()
	}
	return nil
}
