package notification

import (
	"context"
	"time"
)

// Channel is a notification medium.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// Status is the delivery outcome stored on a Record.
type Status string

const (
	StatusSent           Status = "sent"
	StatusSimulated      Status = "simulated"       // no real transport configured
	StatusFailedFallback Status = "failed_fallback" // real transport failed, content logged instead
)

type (
	// Record is one entry of the append-only notifications log.
	Record struct {
		ID        string    `json:"id"`
		Type      Channel   `json:"type"`
		Recipient string    `json:"recipient"`
		Subject   string    `json:"subject,omitempty"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
		Status    Status    `json:"status"`
		MessageID string    `json:"messageId,omitempty"`
		IsReal    bool      `json:"isReal"`
		Error     string    `json:"error,omitempty"`
	}

	// Content is what the dispatcher asks a channel to deliver.
	Content struct {
		Subject string
		Body    string
	}

	// Message is the transport-level payload.
	Message struct {
		Channel Channel
		To      string
		Subject string
		Text    string
		HTML    string // email only
	}

	// Result is the outcome of one channel send as seen by the dispatcher.
	Result struct {
		Channel           Channel `json:"channel"`
		Recipient         string  `json:"recipient"`
		Success           bool    `json:"success"`
		Simulated         bool    `json:"simulated"`
		Status            Status  `json:"status"`
		ProviderMessageID string  `json:"providerMessageId,omitempty"`
		Err               error   `json:"-"` // absorbed delivery error, if any
	}

	// Report is the joined outcome of one Notify call.
	Report struct {
		StudentID string    `json:"studentId"`
		Event     EventKind `json:"event"`
		Subject   string    `json:"subject"`
		Skipped   bool      `json:"skipped"` // no guardian contact
		Results   []Result  `json:"results"`
		Err       error     `json:"-"`
	}

	// Recipient identifies a student and their guardian contact.
	Recipient struct {
		StudentID    string
		StudentName  string
		GuardianName string
		Phone        string
		Email        string
	}

	// Transport performs a real delivery over one channel and returns the provider message id.
	Transport interface {
		Deliver(ctx context.Context, msg Message) (string, error)
	}

	// Log persists notification records.
	Log interface {
		AppendNotification(ctx context.Context, rec Record) error
		QueryNotifications(ctx context.Context) ([]Record, error)
	}

	// Sender delivers content to a recipient over one channel.
	// Send never fails: delivery problems are absorbed into the Result.
	Sender interface {
		Channel() Channel
		Send(ctx context.Context, recipient string, content Content) Result
	}
)

func (r Recipient) HasContact() bool {
	return r.Phone != "" || r.Email != ""
}

// Delivered returns the number of results that reached a real provider.
func (r Report) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusSent {
			n++
		}
	}
	return n
}
