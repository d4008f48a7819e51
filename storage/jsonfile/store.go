// Package jsonfile stores each collection as a JSON array document under a data directory.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
)

type Store struct {
	dir    string
	logger core.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ core.Store = (*Store)(nil)

// Open prepares dir and initialises every missing collection document to `[]`.
func Open(dir string, logger core.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating data dir %s", dir)
	}
	s := &Store{dir: dir, logger: logger, locks: make(map[string]*sync.Mutex, len(core.Collections))}
	for _, coll := range core.Collections {
		if _, err := os.Stat(s.path(coll)); os.IsNotExist(err) {
			if err := s.write(coll, []json.RawMessage{}); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, errors.Wrapf(err, "checking %s", coll)
		}
	}
	return s, nil
}

func (s *Store) path(coll string) string {
	return filepath.Join(s.dir, coll+".json")
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

// load reads a collection document. A missing document is an empty collection.
func (s *Store) load(coll string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path(coll))
	if os.IsNotExist(err) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", coll)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", coll)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

// fatalWriteErrs leave the data directory unwritable until an operator steps in.
var fatalWriteErrs = []error{syscall.ENOSPC, syscall.EROFS, syscall.EDQUOT}

func asShutdown(coll string, err error) error {
	for _, fatal := range fatalWriteErrs {
		if errors.Is(err, fatal) {
			return core.NewShutdownError("jsonfile: data dir unwritable writing "+coll, err)
		}
	}
	return err
}

// write rewrites the whole document through a temp file so readers never see a partial file.
func (s *Store) write(coll string, records []json.RawMessage) error {
	return asShutdown(coll, s.writeFile(coll, records))
}

func (s *Store) writeFile(coll string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding %s", coll)
	}

	tmp, err := os.CreateTemp(s.dir, coll+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "writing %s", coll)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "writing %s", coll)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "writing %s", coll)
	}
	if err = os.Rename(tmp.Name(), s.path(coll)); err != nil {
		return errors.Wrapf(err, "replacing %s", coll)
	}
	return nil
}

func (s *Store) Read(_ context.Context, coll string) []json.RawMessage {
	unlock := s.lock(coll)
	defer unlock()

	records, err := s.load(coll)
	if err != nil {
		s.logger.Error(fmt.Sprintf("jsonfile: %v", err), err)
		return []json.RawMessage{}
	}
	return records
}

func (s *Store) Write(_ context.Context, coll string, records []json.RawMessage) error {
	unlock := s.lock(coll)
	defer unlock()

	if err := s.write(coll, records); err != nil {
		s.logger.Error(fmt.Sprintf("jsonfile: %v", err), err)
		return err
	}
	return nil
}

func (s *Store) Update(ctx context.Context, coll string, fn func([]json.RawMessage) ([]json.RawMessage, error)) error {
	unlock := s.lock(coll)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	records, err := s.load(coll)
	if err != nil {
		s.logger.Error(fmt.Sprintf("jsonfile: %v", err), err)
		return err
	}
	if records, err = fn(records); err != nil {
		return err
	}
	if err = s.write(coll, records); err != nil {
		s.logger.Error(fmt.Sprintf("jsonfile: %v", err), err)
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }
