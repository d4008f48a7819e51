// Package notifysvc wires the guardian notification pipeline to the real delivery providers.
package notifysvc

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/notification"
)

const (
	ProviderSendgrid = "sendgrid"
	ProviderSES      = "ses"
)

// Transports holds the real transport of each channel. A nil transport means the channel is simulated.
type Transports struct {
	SMS      notification.Transport
	WhatsApp notification.Transport
	Email    notification.Transport
}

// NewTransports builds the transports enabled by conf.
func NewTransports(ctx context.Context, conf *core.Config) (Transports, error) {
	t := Transports{
		SMS:      NewTwilioSMS(conf.Twilio),
		WhatsApp: NewTwilioWhatsApp(conf.Twilio),
	}

	switch conf.Email.Provider {
	case ProviderSendgrid, "":
		t.Email = NewSendgrid(conf.Sendgrid, conf.Email)
	case ProviderSES:
		ses, err := NewSES(ctx, conf.AWS, conf.Email)
		if err != nil {
			return Transports{}, err
		}
		t.Email = ses
	default:
		return Transports{}, fmt.Errorf("unknown email provider %q", conf.Email.Provider)
	}
	return t, nil
}

// NewDispatcher builds the channel drivers over t and the dispatcher fanning out to them.
func NewDispatcher(conf *core.Config, t Transports, log notification.Log, logger core.Logger) (*notification.Dispatcher, error) {
	renderer, err := notification.NewRenderer(notification.RendererOptions{
		AppName:    conf.AppName,
		Location:   conf.Notify.Location(),
		TimeLayout: conf.Notify.TimeLayout,
		DateLayout: conf.Notify.DateLayout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading notification templates")
	}

	sms, err := notification.NewSMSDriver(t.SMS, log, logger)
	if err != nil {
		return nil, err
	}
	whatsapp, err := notification.NewWhatsAppDriver(t.WhatsApp, log, logger)
	if err != nil {
		return nil, err
	}
	email, err := notification.NewEmailDriver(t.Email, renderer, log, logger)
	if err != nil {
		return nil, err
	}

	for _, d := range []*notification.Driver{sms, whatsapp, email} {
		if !d.Configured() {
			logger.Info(fmt.Sprintf("%s notifications are simulated (provider not configured)", d.Channel()))
		}
	}

	return notification.NewDispatcher(notification.Options{
		SMS:      sms,
		Email:    email,
		WhatsApp: whatsapp,
		Renderer: renderer,
		Logger:   logger,
		Timeout:  conf.Notify.Timeout,
	})
}
