// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package warehouse opens and reuses Snowflake sessions.
//
// A Session wraps a single-connection database/sql handle so session state
// such as USE WAREHOUSE carries over between statements. Acquire implements
// the reuse policy: an active session is handed back as-is, otherwise a new
// one is built from freshly resolved connection parameters.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"snowdemo/cli/internal/connparams"
	"snowdemo/cli/internal/errors"

	sf "github.com/snowflakedb/gosnowflake"
)

const (
	currentContextSQL = `SELECT CURRENT_USER(), CURRENT_DATABASE(), CURRENT_SCHEMA(), CURRENT_WAREHOUSE(), CURRENT_ROLE()`
	completeSQL       = `SELECT SNOWFLAKE.CORTEX.COMPLETE(?, PARSE_JSON(?), PARSE_JSON(?))`
)

var identifierRe = regexp.MustCompile(`^(?:[A-Za-z_][A-Za-z0-9_$]*|"(?:[^"]|"")+")$`)

// ValidIdentifier reports whether name can be spliced into DDL as an object identifier.
func ValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}

// Session is an open warehouse session.
type Session struct {
	db     *sql.DB
	params *connparams.Params

	mu     sync.Mutex
	closed bool
}

// Open connects with the given parameters and verifies the session with a ping.
func Open(ctx context.Context, p *connparams.Params) (*Session, error) {
	cfg, err := driverConfig(p)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(sf.NewConnector(sf.SnowflakeDriver{}, *cfg))
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.SessionFailed, "open warehouse session", err)
	}

	s := NewSession(db)
	s.params = p
	return s, nil
}

// NewSession wraps an existing handle.
func NewSession(db *sql.DB) *Session {
	return &Session{db: db}
}

// Params returns the parameters the session was opened with, if any.
func (s *Session) Params() *connparams.Params { return s.params }

// Active reports whether the session is open.
func (s *Session) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.db != nil
}

// Close ends the session. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// ExecContext runs a statement that returns no rows.
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// Context describes who and where a session is connected as.
type Context struct {
	User      string
	Database  string
	Schema    string
	Warehouse string
	Role      string
}

func (c Context) String() string {
	return fmt.Sprintf("user=%s, database=%s, schema=%s, warehouse=%s, role=%s",
		c.User, c.Database, c.Schema, c.Warehouse, c.Role)
}

// CurrentContext reads the session's current user, database, schema, warehouse and role.
func (s *Session) CurrentContext(ctx context.Context) (Context, error) {
	var user, db, schema, wh, role sql.NullString
	err := s.db.QueryRowContext(ctx, currentContextSQL).Scan(&user, &db, &schema, &wh, &role)
	if err != nil {
		return Context{}, errors.Wrap(errors.RemoteCallFailed, "read session context", err)
	}
	return Context{
		User:      user.String,
		Database:  db.String,
		Schema:    schema.String,
		Warehouse: wh.String,
		Role:      role.String,
	}, nil
}

// UseWarehouse makes name the session's current warehouse.
func (s *Session) UseWarehouse(ctx context.Context, name string) error {
	if !ValidIdentifier(name) {
		return errors.New(errors.ConfigInvalid, fmt.Sprintf("invalid warehouse name %q", name))
	}
	if _, err := s.db.ExecContext(ctx, "USE WAREHOUSE "+name); err != nil {
		return errors.Wrap(errors.RemoteCallFailed, "use warehouse "+name, err)
	}
	return nil
}

// Complete calls SNOWFLAKE.CORTEX.COMPLETE with JSON-encoded messages and
// options and returns the raw response document.
func (s *Session) Complete(ctx context.Context, model string, messages, options []byte) (string, error) {
	var raw sql.NullString
	if err := s.db.QueryRowContext(ctx, completeSQL, model, string(messages), string(options)).Scan(&raw); err != nil {
		return "", err
	}
	if !raw.Valid {
		return "", fmt.Errorf("cortex returned NULL")
	}
	return raw.String, nil
}

// Outcome tells whether an acquisition reused an active session or opened a new one.
type Outcome int

const (
	OutcomeActive Outcome = iota + 1
	OutcomeNew
)

func (o Outcome) String() string {
	switch o {
	case OutcomeActive:
		return "active"
	case OutcomeNew:
		return "new"
	default:
		return "unknown"
	}
}

// Resolver produces connection parameters; *connparams.Resolver satisfies it.
type Resolver interface {
	Resolve() (*connparams.Params, error)
}

// Acquisition is the result of Acquire.
type Acquisition struct {
	Session *Session
	Outcome Outcome
}

// Release closes the session if this acquisition opened it. Reused sessions
// stay open for their owner.
func (a *Acquisition) Release() error {
	if a == nil || a.Outcome != OutcomeNew {
		return nil
	}
	return a.Session.Close()
}

// Acquirer implements the session reuse policy.
type Acquirer struct {
	Resolver Resolver
	// Open defaults to the package-level Open.
	Open   func(ctx context.Context, p *connparams.Params) (*Session, error)
	Logger *slog.Logger
}

// Acquire returns active when it is open. Otherwise parameters are resolved
// and a new session is opened; resolution and connection errors propagate.
func (a *Acquirer) Acquire(ctx context.Context, active *Session) (*Acquisition, error) {
	if active.Active() {
		return &Acquisition{Session: active, Outcome: OutcomeActive}, nil
	}

	p, err := a.Resolver.Resolve()
	if err != nil {
		return nil, err
	}

	open := a.Open
	if open == nil {
		open = Open
	}
	s, err := open(ctx, p)
	if err != nil {
		return nil, err
	}

	a.logger().Debug("warehouse session opened", "source", p.Source, "account", p.Account)
	return &Acquisition{Session: s, Outcome: OutcomeNew}, nil
}

// Acquire is Acquirer.Acquire with the default opener.
func Acquire(ctx context.Context, active *Session, r Resolver) (*Acquisition, error) {
	return (&Acquirer{Resolver: r}).Acquire(ctx, active)
}
