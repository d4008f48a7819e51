package notifysvc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/notification"
)

// emailSender is the part of the SES client used to send emails.
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesTransport struct {
	client emailSender
	from   string
}

var _ notification.Transport = (*sesTransport)(nil)

// NewSES returns the Amazon SES email transport, or nil without a sender address.
func NewSES(ctx context.Context, awsConf core.AWSConfig, emailConf core.EmailConfig) (notification.Transport, error) {
	if emailConf.FromAddress == "" {
		return nil, nil
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsConf.Region))
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	from := emailConf.FromAddress
	if emailConf.FromName != "" {
		from = fmt.Sprintf("%s <%s>", emailConf.FromName, emailConf.FromAddress)
	}
	return &sesTransport{client: sesv2.NewFromConfig(cfg), from: from}, nil
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}

func (t *sesTransport) Deliver(ctx context.Context, msg notification.Message) (string, error) {
	body := &types.Body{Text: utf8Content(msg.Text)}
	if msg.HTML != "" {
		body.Html = utf8Content(msg.HTML)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(t.from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(msg.Subject),
				Body:    body,
			},
		},
	}

	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		return "", errors.Wrapf(err, "ses email to %s", msg.To)
	}
	return aws.ToString(out.MessageId), nil
}
