package core

import (
	"context"
	"encoding/json"
)

// Collections
const (
	CollStudents      = "students"
	CollSessions      = "sessions"
	CollLoginLogs     = "loginLogs"
	CollTypingStats   = "typingStats"
	CollNotifications = "notifications"
)

var Collections = []string{CollStudents, CollSessions, CollLoginLogs, CollTypingStats, CollNotifications}

type (
	// Store is a document store holding named collections of JSON records.
	Store interface {
		// Read returns all records of a collection.
		// It fails soft: I/O and parse errors are logged and an empty collection is returned.
		Read(ctx context.Context, coll string) []json.RawMessage

		// Write replaces the whole collection. Errors are logged and returned.
		Write(ctx context.Context, coll string, records []json.RawMessage) error

		// Update runs a read-modify-write cycle on a collection while holding its lock.
		// The records returned by fn replace the collection, unless fn fails.
		// A collection that cannot be parsed aborts the update instead of being overwritten.
		Update(ctx context.Context, coll string, fn func(records []json.RawMessage) ([]json.RawMessage, error)) error

		Close() error
	}
)
