package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
)

const (
	selectDocument = `SELECT body FROM documents WHERE collection = ?`
	upsertDocument = `INSERT INTO documents (collection, body, updated_at) VALUES (?, ?, ?)
ON CONFLICT (collection) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
	seedDocument = `INSERT INTO documents (collection, body, updated_at) VALUES (?, '[]', ?)
ON CONFLICT (collection) DO NOTHING`
)

// Store keeps every collection as one JSON document row of the `documents` table.
type Store struct {
	db     *sqlx.DB
	logger core.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ core.Store = (*Store)(nil)

// NewStore seeds an empty document for every collection. The schema must be migrated.
func NewStore(ctx context.Context, db *sqlx.DB, logger core.Logger) (*Store, error) {
	s := &Store{db: db, logger: logger, locks: make(map[string]*sync.Mutex, len(core.Collections))}
	for _, coll := range core.Collections {
		if _, err := db.ExecContext(ctx, db.Rebind(seedDocument), coll, core.NowFunc()); err != nil {
			return nil, errors.Wrapf(err, "seeding %s", coll)
		}
	}
	return s, nil
}

func (s *Store) lock(coll string) func() {
	s.mu.Lock()
	l, ok := s.locks[coll]
	if !ok {
		l = &sync.Mutex{}
		s.locks[coll] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func decode(coll, body string) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", coll)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

func encode(coll string, records []json.RawMessage) (string, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", errors.Wrapf(err, "encoding %s", coll)
	}
	return string(data), nil
}

func (s *Store) Read(ctx context.Context, coll string) []json.RawMessage {
	var body string
	err := s.db.GetContext(ctx, &body, s.db.Rebind(selectDocument), coll)
	if errors.Is(err, sql.ErrNoRows) {
		return []json.RawMessage{}
	}
	if err != nil {
		s.logger.Error(fmt.Sprintf("database: reading %s: %v", coll, err), err)
		return []json.RawMessage{}
	}
	records, err := decode(coll, body)
	if err != nil {
		s.logger.Error(fmt.Sprintf("database: %v", err), err)
		return []json.RawMessage{}
	}
	return records
}

func (s *Store) Write(ctx context.Context, coll string, records []json.RawMessage) error {
	unlock := s.lock(coll)
	defer unlock()

	body, err := encode(coll, records)
	if err == nil {
		_, err = s.db.ExecContext(ctx, s.db.Rebind(upsertDocument), coll, body, core.NowFunc())
	}
	if err != nil {
		err = errors.Wrapf(err, "writing %s", coll)
		s.logger.Error(fmt.Sprintf("database: %v", err), err)
		return err
	}
	return nil
}

// Update serializes writers of a collection with an in-process lock. On postgres the cycle also runs
// in a transaction holding the row lock, so several processes can share the database. sqlite only
// has one connection, which fn may need for its own reads, so no transaction is held there.
func (s *Store) Update(ctx context.Context, coll string, fn func([]json.RawMessage) ([]json.RawMessage, error)) error {
	unlock := s.lock(coll)
	defer unlock()

	if s.db.DriverName() != "postgres" {
		return s.update(ctx, s.db, coll, "", fn)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = s.update(ctx, tx, coll, " FOR UPDATE", fn); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrapf(err, "committing %s", coll)
	}
	return nil
}

type execer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (s *Store) update(ctx context.Context, ex execer, coll, lockClause string, fn func([]json.RawMessage) ([]json.RawMessage, error)) error {
	var body string
	records := []json.RawMessage{}
	switch err := ex.GetContext(ctx, &body, ex.Rebind(selectDocument+lockClause), coll); {
	case errors.Is(err, sql.ErrNoRows): // pass
	case err != nil:
		s.logger.Error(fmt.Sprintf("database: reading %s: %v", coll, err), err)
		return errors.Wrapf(err, "reading %s", coll)
	default:
		if records, err = decode(coll, body); err != nil {
			s.logger.Error(fmt.Sprintf("database: %v", err), err)
			return err
		}
	}

	records, err := fn(records)
	if err != nil {
		return err
	}
	if body, err = encode(coll, records); err != nil {
		return err
	}
	if _, err = ex.ExecContext(ctx, ex.Rebind(upsertDocument), coll, body, core.NowFunc()); err != nil {
		err = errors.Wrapf(err, "writing %s", coll)
		s.logger.Error(fmt.Sprintf("database: %v", err), err)
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
