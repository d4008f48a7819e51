package inmemdb

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/trezcool/studytrack/core"
)

// Store is a map-backed core.Store.
type Store struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	docs  map[string][]json.RawMessage
}

var _ core.Store = (*Store)(nil)

func NewStore() *Store {
	s := &Store{
		locks: make(map[string]*sync.Mutex, len(core.Collections)),
		docs:  make(map[string][]json.RawMessage, len(core.Collections)),
	}
	for _, coll := range core.Collections {
		s.docs[coll] = []json.RawMessage{}
	}
	return s
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

func (s *Store) get(coll string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage{}, s.docs[coll]...)
}

func (s *Store) set(coll string, records []json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[coll] = append([]json.RawMessage{}, records...)
}

func (s *Store) Read(_ context.Context, coll string) []json.RawMessage {
	unlock := s.lock(coll)
	defer unlock()
	return s.get(coll)
}

func (s *Store) Write(_ context.Context, coll string, records []json.RawMessage) error {
	unlock := s.lock(coll)
	defer unlock()
	s.set(coll, records)
	return nil
}

func (s *Store) Update(ctx context.Context, coll string, fn func([]json.RawMessage) ([]json.RawMessage, error)) error {
	unlock := s.lock(coll)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	records, err := fn(s.get(coll))
	if err != nil {
		return err
	}
	s.set(coll, records)
	return nil
}

func (s *Store) Close() error { return nil }
