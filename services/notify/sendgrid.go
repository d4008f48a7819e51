package notifysvc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/notification"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"

	// sendgridAPI is swapped in tests.
	sendgridAPI = sendgrid.API
)

type sendgridTransport struct {
	key  string
	from *sgmail.Email
}

var _ notification.Transport = (*sendgridTransport)(nil)

// NewSendgrid returns the SendGrid email transport, or nil without an API key.
func NewSendgrid(sgConf core.SendgridConfig, emailConf core.EmailConfig) notification.Transport {
	if sgConf.APIKey == "" {
		return nil
	}
	return &sendgridTransport{
		key:  sgConf.APIKey,
		from: sgmail.NewEmail(emailConf.FromName, emailConf.FromAddress),
	}
}

func (t *sendgridTransport) prepare(msg notification.Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail("", msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(t.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return m
}

func (t *sendgridTransport) Deliver(ctx context.Context, msg notification.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	req := sendgrid.GetRequest(t.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(t.prepare(msg))

	res, err := sendgridAPI(req)
	if err != nil {
		return "", errors.Wrapf(err, "sendgrid email to %s", msg.To)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("sendgrid email to %s - status: %d - body: %s", msg.To, res.StatusCode, res.Body)
	}
	return messageID(res), nil
}

func messageID(res *rest.Response) string {
	for _, key := range []string{"X-Message-Id", "X-Message-ID"} {
		if ids := res.Headers[key]; len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}
