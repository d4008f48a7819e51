package testutil

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/notification"
	"github.com/trezcool/studytrack/core/student"
)

// DiscardLogger drops every log line.
var DiscardLogger = core.NewStdLogger(log.New(io.Discard, "", 0))

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, email, parentEmail, parentPhone string,
	registeredAt ...time.Time,
) student.Student {
	tstamp := time.Now().UTC()
	if len(registeredAt) > 0 {
		tstamp = registeredAt[0].UTC()
	}
	st := student.Student{
		ID:            core.NewID(),
		Name:          name,
		Email:         email,
		Interests:     []string{},
		LearningGoals: []string{},
		ContactInfo: student.ContactInfo{
			ParentName:  "Parent of " + name,
			ParentEmail: parentEmail,
			ParentPhone: parentPhone,
		},
		RegisteredAt:       tstamp,
		LastActive:         tstamp,
		PerformanceHistory: []student.ProgressEntry{},
	}
	st, err := repo.CreateStudent(context.Background(), st)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return st
}

// Notification is one call recorded by Notifier.
type Notification struct {
	Recipient notification.Recipient
	Event     notification.Event
}

// Notifier records dispatched notifications instead of sending them.
type Notifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *Notifier) Go(rcpt notification.Recipient, ev notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{Recipient: rcpt, Event: ev})
}

func (n *Notifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// Last returns the most recent notification, failing the test when there is none.
func (n *Notifier) Last(t *testing.T) Notification {
	t.Helper()
	sent := n.Sent()
	if len(sent) == 0 {
		t.Fatal("no notification sent")
	}
	return sent[len(sent)-1]
}

// FreezeTime sets core.NowFunc to return now until the test ends.
func FreezeTime(t *testing.T, now time.Time) *time.Time {
	t.Helper()
	original := core.NowFunc
	current := now
	core.NowFunc = func() time.Time { return current }
	t.Cleanup(func() { core.NowFunc = original })
	return &current
}
