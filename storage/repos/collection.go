// Package repos implements the domain repositories over any core.Store.
package repos

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
)

var errNoMatch = errors.New("no matching record")

// collection is a typed view of a store collection.
type collection[T any] struct {
	store core.Store
	name  string
}

func decodeAll[T any](name string, records []json.RawMessage) ([]T, error) {
	items := make([]T, 0, len(records))
	for i, raw := range records {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, errors.Wrapf(err, "decoding %s[%d]", name, i)
		}
		items = append(items, item)
	}
	return items, nil
}

// all returns every record of the collection in insertion order.
func (c collection[T]) all(ctx context.Context) ([]T, error) {
	return decodeAll[T](c.name, c.store.Read(ctx, c.name))
}

func (c collection[T]) filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	items, err := c.all(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

func (c collection[T]) find(ctx context.Context, match func(T) bool) (T, error) {
	var zero T
	items, err := c.all(ctx)
	if err != nil {
		return zero, err
	}
	for i := len(items) - 1; i >= 0; i-- {
		if match(items[i]) {
			return items[i], nil
		}
	}
	return zero, errNoMatch
}

// insert appends item, after check accepted the current items.
func (c collection[T]) insert(ctx context.Context, item T, check func([]T) error) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", c.name)
	}
	return c.store.Update(ctx, c.name, func(records []json.RawMessage) ([]json.RawMessage, error) {
		if check != nil {
			items, err := decodeAll[T](c.name, records)
			if err != nil {
				return nil, err
			}
			if err = check(items); err != nil {
				return nil, err
			}
		}
		return append(records, raw), nil
	})
}

// update applies fn to the most recent item accepted by match, atomically.
func (c collection[T]) update(ctx context.Context, match func(T) bool, fn func(*T) error) (T, error) {
	var updated T
	err := c.store.Update(ctx, c.name, func(records []json.RawMessage) ([]json.RawMessage, error) {
		items, err := decodeAll[T](c.name, records)
		if err != nil {
			return nil, err
		}
		for i := len(items) - 1; i >= 0; i-- {
			if !match(items[i]) {
				continue
			}
			item := items[i]
			if err = fn(&item); err != nil {
				return nil, err
			}
			raw, err := json.Marshal(item)
			if err != nil {
				return nil, errors.Wrapf(err, "encoding %s", c.name)
			}
			records[i] = raw
			updated = item
			return records, nil
		}
		return nil, errNoMatch
	})
	return updated, err
}
