package repository

import (
	"context"
	"fmt"
	"io"

	"github.com/charadev96/galleryclient/internal/client/domain"
)

const (
	DriverTOML   = "toml"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the token repository for driver stored at path. The closer
// releases the underlying file or database.
func Open(ctx context.Context, driver, path string) (domain.TokenRepository, io.Closer, error) {
	switch driver {
	case DriverTOML, "":
		return &TOMLTokenRepository{FilePath: path}, nopCloser{}, nil
	case DriverBolt:
		r, err := OpenBoltTokenRepository(path)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case DriverSQLite:
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		r, err := NewBunTokenRepository(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return r, r, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver '%s'", driver)
}
