// Package storetest checks the behavior shared by every core.Store implementation.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studytrack/core"
)

func raw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func ids(t *testing.T, records []json.RawMessage) []string {
	t.Helper()
	out := make([]string, 0, len(records))
	for _, r := range records {
		var item struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(r, &item))
		out = append(out, item.ID)
	}
	return out
}

// Run exercises store. It must start empty.
func Run(t *testing.T, store core.Store) {
	ctx := context.Background()

	t.Run("collections start empty", func(t *testing.T) {
		for _, coll := range core.Collections {
			got := store.Read(ctx, coll)
			assert.NotNil(t, got, coll)
			assert.Empty(t, got, coll)
		}
	})

	t.Run("write then read", func(t *testing.T) {
		records := []json.RawMessage{
			raw(t, map[string]string{"id": "a"}),
			raw(t, map[string]string{"id": "b"}),
		}
		require.NoError(t, store.Write(ctx, core.CollSessions, records))
		assert.Equal(t, []string{"a", "b"}, ids(t, store.Read(ctx, core.CollSessions)))
		assert.Empty(t, store.Read(ctx, core.CollStudents), "collections are independent")

		require.NoError(t, store.Write(ctx, core.CollSessions, nil))
		assert.Empty(t, store.Read(ctx, core.CollSessions))
	})

	t.Run("update", func(t *testing.T) {
		err := store.Update(ctx, core.CollTypingStats, func(records []json.RawMessage) ([]json.RawMessage, error) {
			return append(records, raw(t, map[string]string{"id": "x"})), nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, ids(t, store.Read(ctx, core.CollTypingStats)))

		errAbort := errors.New("abort")
		err = store.Update(ctx, core.CollTypingStats, func(records []json.RawMessage) ([]json.RawMessage, error) {
			return nil, errAbort
		})
		assert.Equal(t, errAbort, errors.Cause(err))
		assert.Equal(t, []string{"x"}, ids(t, store.Read(ctx, core.CollTypingStats)), "failed updates change nothing")
	})

	t.Run("concurrent updates are all kept", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := store.Update(ctx, core.CollNotifications, func(records []json.RawMessage) ([]json.RawMessage, error) {
					return append(records, raw(t, map[string]string{"id": fmt.Sprint(i)})), nil
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()
		assert.Len(t, store.Read(ctx, core.CollNotifications), 25)
	})

	t.Run("update honors canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		var called bool
		err := store.Update(cctx, core.CollLoginLogs, func(records []json.RawMessage) ([]json.RawMessage, error) {
			called = true
			return records, nil
		})
		assert.Error(t, err)
		assert.False(t, called)
	})
}
