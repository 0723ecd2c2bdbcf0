package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	shared "github.com/charadev96/galleryclient/internal/shared/domain"
)

// OpenSQLite opens or creates the sqlite database at path.
func OpenSQLite(path string) (*bun.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), permDirectory); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

type BunTokenRepository struct {
	db *bun.DB
}

func NewBunTokenRepository(ctx context.Context, db *bun.DB) (*BunTokenRepository, error) {
	r := &BunTokenRepository{
		db: db,
	}
	_, err := r.db.NewCreateTable().
		Model((*clientValue)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return r, fmt.Errorf("failed to create repository: %w", err)
	}
	return r, nil
}

func (r *BunTokenRepository) Get(ctx context.Context, key string) (string, error) {
	v := new(clientValue)
	err := r.db.NewSelect().
		Model(v).
		Where("name = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = shared.ErrNotExist
		}
		return "", fmt.Errorf("failed to get value '%s': %w", key, err)
	}
	return v.Value, nil
}

// Set replaces the value of key inside a transaction so readers never see
// the key missing.
func (r *BunTokenRepository) Set(ctx context.Context, key, value string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*clientValue)(nil)).
			Where("name = ?", key).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to replace value '%s': %w", key, err)
		}
		v := &clientValue{Name: key, Value: value, UpdatedAt: time.Now()}
		_, err = tx.NewInsert().
			Model(v).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set value '%s': %w", key, err)
		}
		return nil
	})
}

func (r *BunTokenRepository) Delete(ctx context.Context, key string) error {
	res, err := r.db.NewDelete().
		Model((*clientValue)(nil)).
		Where("name = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete value '%s': %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to delete value '%s': %w", key, shared.ErrNotExist)
	}
	return nil
}

func (r *BunTokenRepository) Close() error {
	return r.db.Close()
}

type clientValue struct {
	bun.BaseModel `bun:"table:client_values"`

	Name      string `bun:",pk"`
	Value     string `bun:",notnull"`
	UpdatedAt time.Time
}
