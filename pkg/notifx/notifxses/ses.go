package notifxses

import (
	"context"

	"github.com/Abraxas-365/courier/pkg/notifx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"gopkg.in/gomail.v2"
)

// API is the part of the SES client the provider uses.
type API interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	SendRawEmail(ctx context.Context, in *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESProvider sends through AWS SES. Messages with attachments go through
// SendRawEmail.
type SESProvider struct {
	client API
}

func NewSESProvider(client API) *SESProvider {
	return &SESProvider{client: client}
}

func (p *SESProvider) SendEmail(ctx context.Context, msg notifx.EmailMessage, opts ...notifx.Option) error {
	so := notifx.ApplyOptions(opts)
	if len(msg.Attachments) > 0 {
		return p.sendRaw(ctx, msg, so)
	}

	body := &types.Body{}
	if msg.TextBody != "" {
		body.Text = content(msg.TextBody)
	}
	if msg.HTMLBody != "" {
		body.Html = content(msg.HTMLBody)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(source(msg)),
		Destination: &types.Destination{
			ToAddresses:  msg.To,
			CcAddresses:  msg.CC,
			BccAddresses: msg.BCC,
		},
		Message: &types.Message{
			Subject: content(msg.Subject),
			Body:    body,
		},
		Tags: tags(so.Tags),
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}
	if so.ConfigID != "" {
		input.ConfigurationSetName = aws.String(so.ConfigID)
	}

	if _, err := p.client.SendEmail(ctx, input); err != nil {
		return sesErrors.NewWithCause(ErrSendFailed, err).
			WithDetail("to", msg.To).
			WithDetail("subject", msg.Subject)
	}
	return nil
}

func (p *SESProvider) sendRaw(ctx context.Context, msg notifx.EmailMessage, so notifx.SendOptions) error {
	raw, err := notifx.RawMIME(msg)
	if err != nil {
		return err
	}

	destinations := append(append(append([]string{}, msg.To...), msg.CC...), msg.BCC...)
	input := &ses.SendRawEmailInput{
		RawMessage:   &types.RawMessage{Data: raw},
		Source:       aws.String(source(msg)),
		Destinations: destinations,
		Tags:         tags(so.Tags),
	}
	if so.ConfigID != "" {
		input.ConfigurationSetName = aws.String(so.ConfigID)
	}

	if _, err := p.client.SendRawEmail(ctx, input); err != nil {
		return sesErrors.NewWithCause(ErrSendRawFailed, err).
			WithDetail("to", msg.To).
			WithDetail("attachments", len(msg.Attachments))
	}
	return nil
}

func source(msg notifx.EmailMessage) string {
	if msg.FromName == "" {
		return msg.From
	}
	return gomail.NewMessage().FormatAddress(msg.From, msg.FromName)
}

func content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

func tags(in map[string]string) []types.MessageTag {
	if len(in) == 0 {
		return nil
	}
	out := make([]types.MessageTag, 0, len(in))
	for k, v := range in {
		out = append(out, types.MessageTag{Name: aws.String(k), Value: aws.String(v)})
	}
	return out
}

var (
	_ notifx.EmailSender = (*SESProvider)(nil)
	_ API                = (*ses.Client)(nil)
)
