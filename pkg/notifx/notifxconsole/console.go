package notifxconsole

import (
	"context"
	"strings"

	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/notifx"
)

// ConsoleProvider logs emails instead of sending them. For development.
type ConsoleProvider struct{}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) SendEmail(_ context.Context, msg notifx.EmailMessage, _ ...notifx.Option) error {
	logx.WithFields(logx.Fields{
		"from":        msg.From,
		"to":          strings.Join(msg.To, ", "),
		"subject":     msg.Subject,
		"attachments": len(msg.Attachments),
	}).Info("notifx/console: email sent (dev mode)")

	if msg.HTMLBody != "" {
		logx.Debugf("notifx/console: html body:\n%s", msg.HTMLBody)
	}
	return nil
}

var _ notifx.EmailSender = (*ConsoleProvider)(nil)
