// Package history persists chat transcripts per browser session.
//
// Open picks a backend from the DSN: empty keeps transcripts in process
// memory, postgres:// and postgresql:// use a pgx pool, sqlite:// and file:
// use an embedded SQLite database.
package history

import (
	"context"
	"strings"

	"snowdemo/cli/internal/errors"
	"snowdemo/cli/internal/llm"
)

// Store records and replays transcripts. Messages come back in the order they
// were appended.
type Store interface {
	Append(ctx context.Context, sessionID string, msgs ...llm.Message) error
	Load(ctx context.Context, sessionID string) ([]llm.Message, error)
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// Open returns the store selected by dsn.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "file:"):
		return OpenSQLite(ctx, dsn)
	default:
		return nil, errors.New(errors.ConfigInvalid, "unsupported history DSN scheme (use postgres://, sqlite:// or file:)")
	}
}
