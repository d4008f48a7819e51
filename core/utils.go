package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NowFunc is the clock used by services. Mockable in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NewID returns a unique, time-ordered record ID.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Millis returns d in whole milliseconds, never negative.
func Millis(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

// AppendUnique appends s to list unless it is empty or already present.
func AppendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, item := range list {
		if item == s {
			return list
		}
	}
	return append(list, s)
}
