package notifxsmtp

import (
	"context"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/notifx"
	"gopkg.in/gomail.v2"
)

var smtpErrors = errx.NewRegistry("NOTIFX_SMTP")

var ErrSendFailed = smtpErrors.Register("SEND_FAILED", errx.TypeExternal, 502, "SMTP send failed")

// Config holds the SMTP server settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPProvider sends through an SMTP server with gomail. One connection is
// opened per message.
type SMTPProvider struct {
	dialer Dialer
}

func NewSMTPProvider(cfg Config) *SMTPProvider {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	return &SMTPProvider{dialer: d}
}

// NewSMTPProviderWithDialer uses d instead of a real SMTP connection.
func NewSMTPProviderWithDialer(d Dialer) *SMTPProvider {
	return &SMTPProvider{dialer: d}
}

func (p *SMTPProvider) SendEmail(ctx context.Context, msg notifx.EmailMessage, _ ...notifx.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.dialer.DialAndSend(notifx.NewMIMEMessage(msg)); err != nil {
		return smtpErrors.NewWithCause(ErrSendFailed, err).
			WithDetail("to", msg.To).
			WithDetail("subject", msg.Subject)
	}
	return nil
}

var _ notifx.EmailSender = (*SMTPProvider)(nil)
