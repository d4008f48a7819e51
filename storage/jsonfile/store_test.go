package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/storage/storetest"
	"github.com/trezcool/studytrack/tests"
)

func TestStore(t *testing.T) {
	store, err := Open(t.TempDir(), testutil.DiscardLogger)
	require.NoError(t, err)
	storetest.Run(t, store)
}

func TestOpen_InitialisesDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	_, err := Open(dir, testutil.DiscardLogger)
	require.NoError(t, err)

	for _, coll := range core.Collections {
		data, err := os.ReadFile(filepath.Join(dir, coll+".json"))
		require.NoError(t, err, coll)
		assert.Equal(t, "[]", string(data), coll)
	}
}

func TestOpen_KeepsExistingDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "students.json"), []byte(`[{"id":"s1"}]`), 0o644))

	store, err := Open(dir, testutil.DiscardLogger)
	require.NoError(t, err)
	assert.Len(t, store.Read(context.Background(), core.CollStudents), 1)
}

func TestStore_WriteIsIndented(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, testutil.DiscardLogger)
	require.NoError(t, err)

	require.NoError(t, store.Write(context.Background(), core.CollSessions, []json.RawMessage{json.RawMessage(`{"id":"a"}`)}))
	data, err := os.ReadFile(filepath.Join(dir, "sessions.json"))
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"id\": \"a\"\n  }\n]", string(data))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestStore_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, testutil.DiscardLogger)
	require.NoError(t, err)
	ctx := context.Background()

	path := filepath.Join(dir, "loginLogs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":`), 0o644))

	// reads fail soft
	got := store.Read(ctx, core.CollLoginLogs)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	// updates refuse to clobber the document
	err = store.Update(ctx, core.CollLoginLogs, func(records []json.RawMessage) ([]json.RawMessage, error) {
		return append(records, json.RawMessage(`{"id":"b"}`)), nil
	})
	assert.Error(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":`, string(data))
}

func TestStore_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, testutil.DiscardLogger)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	err = store.Write(context.Background(), core.CollStudents, nil)
	assert.Error(t, err)
}

func TestAsShutdown(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantShutdown bool
	}{
		{name: "no error"},
		{name: "missing dir", err: errors.Wrap(&os.PathError{Op: "open", Path: "x", Err: syscall.ENOENT}, "writing students")},
		{name: "disk full", err: errors.Wrap(&os.PathError{Op: "write", Path: "x", Err: syscall.ENOSPC}, "writing students"), wantShutdown: true},
		{name: "read-only volume", err: &os.PathError{Op: "open", Path: "x", Err: syscall.EROFS}, wantShutdown: true},
		{name: "quota exceeded", err: &os.LinkError{Op: "rename", Old: "a", New: "b", Err: syscall.EDQUOT}, wantShutdown: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := asShutdown(core.CollStudents, tt.err)
			assert.Equal(t, tt.wantShutdown, core.IsShutdown(err))
			if tt.err == nil {
				assert.NoError(t, err)
			}
			if tt.wantShutdown {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}
