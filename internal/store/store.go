package store

import (
	"context"
	"fmt"
	"strings"

	"watchface-scraper/internal/types"
)

// Store persists watch face records
type Store interface {
	// FindExisting returns the record matching the lookup's (name, imageUrl)
	// pair, else the one with its original id, else nil.
	FindExisting(ctx context.Context, lookup types.Lookup) (*types.StoredRecord, error)

	// Insert stores a new active record and returns it with its id and timestamps.
	Insert(ctx context.Context, record *types.CandidateRecord) (*types.StoredRecord, error)

	// Update overwrites a stored record and refreshes its update timestamps.
	Update(ctx context.Context, record *types.StoredRecord) (*types.StoredRecord, error)

	Close() error
}

// Open connects to the store named by dsn:
//
//	memory://              in-process, lost on exit
//	sqlite://<path>, *.db  local SQLite file
//	postgres://...         PostgreSQL
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "" || strings.HasPrefix(dsn, "memory://"):
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return openSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasSuffix(dsn, ".db") && !strings.Contains(dsn, "://"):
		return openSQLite(ctx, dsn)
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", redact(dsn), err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store dsn %q", redact(dsn))
	}
}

func openSQLite(ctx context.Context, path string) (Store, error) {
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}

// redact hides credentials in a DSN before it is logged or returned
func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return dsn
}
