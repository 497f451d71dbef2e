package repo

import (
	"fmt"
	"strings"

	"checkout-backend/internal/usecase"
)

// Store is what the server needs from persistence.
type Store interface {
	usecase.SessionRepo
	usecase.AuditRepo
	Close() error
}

// Open picks a backend from a database URL: postgres:// or postgresql:// use
// Postgres, sqlite://<path> uses SQLite, and an empty URL keeps everything in
// memory.
func Open(databaseURL string) (Store, error) {
	switch {
	case databaseURL == "":
		return NewMemoryRepo(), nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		r, err := NewPostgresRepo(databaseURL)
		if err != nil {
			return nil, err
		}
		return r, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("sqlite url needs a path")
		}
		r, err := NewSQLiteRepo(path)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", databaseURL)
	}
}
