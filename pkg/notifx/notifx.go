package notifx

import (
	"context"
	"strings"
)

// EmailSender sends a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) error
}

// Client validates messages before handing them to the configured provider.
type Client struct {
	provider EmailSender
}

func NewClient(provider EmailSender) *Client {
	return &Client{provider: provider}
}

func (c *Client) SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) error {
	if c.provider == nil {
		return notifxErrors.New(ErrNoProvider)
	}
	if len(msg.To) == 0 {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "no recipients")
	}
	if strings.TrimSpace(msg.From) == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "no sender")
	}
	if msg.Subject == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty subject")
	}
	return c.provider.SendEmail(ctx, msg, opts...)
}

// SplitAddresses splits a ";" or "," separated address list, dropping blanks.
func SplitAddresses(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
