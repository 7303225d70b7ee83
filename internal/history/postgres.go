package history

import (
	"context"
	"fmt"
	"time"

	"snowdemo/cli/internal/errors"
	"snowdemo/cli/internal/llm"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, id);
`

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, pings and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	ctxPing, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctxPing, dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "history database", err)
	}
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, errors.Wrap(errors.SessionFailed, "history database unreachable", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Append(ctx context.Context, sessionID string, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(`INSERT INTO chat_messages (session_id, role, content) VALUES ($1, $2, $3)`,
			sessionID, string(m.Role), m.Content)
	}
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (p *Postgres) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT role, content FROM chat_messages WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (llm.Message, error) {
		var role, content string
		err := row.Scan(&role, &content)
		return llm.Message{Role: llm.Role(role), Content: content}, err
	})
}

func (p *Postgres) Clear(ctx context.Context, sessionID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM chat_messages WHERE session_id = $1`, sessionID)
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
