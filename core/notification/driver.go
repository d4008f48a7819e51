package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
)

const (
	whatsappPrefix = "whatsapp:"
	recordTimeout  = 5 * time.Second
)

// Driver sends over one channel through a real Transport and falls back to a logged simulation
// when the transport is missing or fails. Every attempt ends up in the notifications Log.
type Driver struct {
	channel   Channel
	transport Transport // nil: not configured
	log       Log
	logger    core.Logger
	prepare   func(msg *Message) error
}

var _ Sender = (*Driver)(nil)

func newDriver(ch Channel, transport Transport, log Log, logger core.Logger) (*Driver, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(log, "log"),
		vala.IsNotNil(logger, "logger"),
	).Check()
	if err != nil {
		return nil, err
	}
	return &Driver{channel: ch, transport: transport, log: log, logger: logger}, nil
}

// NewSMSDriver returns a plain-text SMS driver. transport may be nil.
func NewSMSDriver(transport Transport, log Log, logger core.Logger) (*Driver, error) {
	return newDriver(ChannelSMS, transport, log, logger)
}

// NewWhatsAppDriver returns a plain-text WhatsApp driver. Recipients get the `whatsapp:` prefix.
func NewWhatsAppDriver(transport Transport, log Log, logger core.Logger) (*Driver, error) {
	d, err := newDriver(ChannelWhatsApp, transport, log, logger)
	if err != nil {
		return nil, err
	}
	d.prepare = func(msg *Message) error {
		msg.To = NormalizeWhatsApp(msg.To)
		return nil
	}
	return d, nil
}

// NewEmailDriver returns an email driver that wraps the text body into the HTML layout.
func NewEmailDriver(transport Transport, renderer *Renderer, log Log, logger core.Logger) (*Driver, error) {
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}
	d, err := newDriver(ChannelEmail, transport, log, logger)
	if err != nil {
		return nil, err
	}
	d.prepare = func(msg *Message) error {
		html, err := renderer.RenderHTML(msg.Subject, msg.Text, core.NowFunc())
		if err != nil {
			return err
		}
		msg.HTML = html
		return nil
	}
	return d, nil
}

// NormalizeWhatsApp prefixes a phone number with the WhatsApp channel marker if absent.
func NormalizeWhatsApp(to string) string {
	if strings.HasPrefix(to, whatsappPrefix) {
		return to
	}
	return whatsappPrefix + to
}

func (d *Driver) Channel() Channel { return d.channel }

// Configured reports whether a real transport is available.
func (d *Driver) Configured() bool { return d.transport != nil }

func (d *Driver) Send(ctx context.Context, recipient string, content Content) Result {
	msg := Message{
		Channel: d.channel,
		To:      recipient,
		Subject: content.Subject,
		Text:    content.Body,
	}
	if d.prepare != nil {
		if err := d.prepare(&msg); err != nil {
			d.logger.Warn(fmt.Sprintf("preparing %s to %s: %v", d.channel, recipient, err), err)
		}
	}

	if d.transport == nil {
		return d.fallback(ctx, msg, StatusSimulated, nil)
	}

	id, err := d.deliver(ctx, msg)
	if err != nil {
		d.logger.Warn(fmt.Sprintf("sending %s to %s failed, falling back: %v", d.channel, msg.To, err), err)
		return d.fallback(ctx, msg, StatusFailedFallback, err)
	}

	d.logger.Info(fmt.Sprintf("%s sent to %s: %s", d.channel, msg.To, id))
	d.record(ctx, Record{
		Type:      d.channel,
		Recipient: msg.To,
		Subject:   msg.Subject,
		Message:   msg.Text,
		Status:    StatusSent,
		MessageID: id,
		IsReal:    true,
	})
	return Result{
		Channel:           d.channel,
		Recipient:         msg.To,
		Success:           true,
		Status:            StatusSent,
		ProviderMessageID: id,
	}
}

// deliver calls the transport, turning a panic into an error.
func (d *Driver) deliver(ctx context.Context, msg Message) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("transport panic: %v", r)
		}
	}()
	return d.transport.Deliver(ctx, msg)
}

func (d *Driver) fallback(ctx context.Context, msg Message, status Status, cause error) Result {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "[SIMULATED] %s to %s", strings.ToUpper(string(d.channel)), msg.To)
	if msg.Subject != "" && d.channel == ChannelEmail {
		_, _ = fmt.Fprintf(&b, ": %s", msg.Subject)
	}
	_, _ = fmt.Fprintf(&b, "\n%s", msg.Text)
	d.logger.Info(b.String())

	rec := Record{
		Type:      d.channel,
		Recipient: msg.To,
		Message:   msg.Text,
		Status:    status,
	}
	if d.channel == ChannelEmail {
		rec.Subject = msg.Subject
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	d.record(ctx, rec)

	return Result{
		Channel:   d.channel,
		Recipient: msg.To,
		Success:   true,
		Simulated: true,
		Status:    status,
		Err:       cause,
	}
}

// record appends rec to the log even when the delivery deadline has already passed.
func (d *Driver) record(ctx context.Context, rec Record) {
	rec.ID = core.NewID()
	rec.Timestamp = core.NowFunc()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := d.log.AppendNotification(ctx, rec); err != nil {
		d.logger.Error(fmt.Sprintf("logging %s notification: %v", d.channel, err), err)
	}
}
