package notification

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
)

var discardLogger = core.NewStdLogger(log.New(io.Discard, "", 0))

type memLog struct {
	mu       sync.Mutex
	records  []Record
	err      error
	honorCtx bool // reject appends on a done context, like the real stores
}

func (l *memLog) AppendNotification(ctx context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	if l.honorCtx {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	l.records = append(l.records, rec)
	return nil
}

func (l *memLog) QueryNotifications(context.Context) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...), nil
}

type fakeTransport struct {
	mu    sync.Mutex
	sent  []Message
	id    string
	err   error
	panic bool
	delay time.Duration
}

func (f *fakeTransport) Deliver(ctx context.Context, msg Message) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.panic {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return f.id, nil
}

var errProvider = errors.New("provider unavailable")

func newTestRenderer(t *testing.T) *Renderer {
	r, err := NewRenderer(RendererOptions{AppName: "StudyTrack"})
	if err != nil {
		t.Fatalf("NewRenderer() failed: %v", err)
	}
	return r
}
