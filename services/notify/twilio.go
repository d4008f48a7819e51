package notifysvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/notification"
)

// messageCreator is the part of the twilio client used to send messages.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type twilioTransport struct {
	api  messageCreator
	from string
}

var _ notification.Transport = (*twilioTransport)(nil)

func newTwilioClient(conf core.TwilioConfig) *twilio.RestClient {
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: conf.AccountSID,
		Password: conf.AuthToken,
	})
}

func twilioConfigured(conf core.TwilioConfig) bool {
	return conf.AccountSID != "" && conf.AuthToken != ""
}

// NewTwilioSMS returns the SMS transport, or nil when Twilio is not configured.
func NewTwilioSMS(conf core.TwilioConfig) notification.Transport {
	if !twilioConfigured(conf) || conf.FromNumber == "" {
		return nil
	}
	return &twilioTransport{api: newTwilioClient(conf).Api, from: conf.FromNumber}
}

// NewTwilioWhatsApp returns the WhatsApp transport, or nil when Twilio is not configured.
func NewTwilioWhatsApp(conf core.TwilioConfig) notification.Transport {
	if !twilioConfigured(conf) || conf.WhatsappFromNumber == "" {
		return nil
	}
	return &twilioTransport{
		api:  newTwilioClient(conf).Api,
		from: notification.NormalizeWhatsApp(conf.WhatsappFromNumber),
	}
}

func (t *twilioTransport) Deliver(ctx context.Context, msg notification.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(t.from)
	params.SetBody(msg.Text)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return "", errors.Wrapf(err, "twilio %s to %s", msg.Channel, msg.To)
	}
	if resp == nil || resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}
