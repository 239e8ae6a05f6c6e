package notifxsmtp

import (
	"bytes"
	"context"
	"testing"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/notifx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSendEmail(t *testing.T) {
	d := &fakeDialer{}
	p := NewSMTPProviderWithDialer(d)

	err := p.SendEmail(context.Background(), notifx.EmailMessage{
		From:     "shop@example.com",
		To:       []string{"jane@example.com"},
		CC:       []string{"ops@example.com"},
		Subject:  "Order shipped",
		HTMLBody: "<p>On its way</p>",
	})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	assert.Equal(t, []string{"Order shipped"}, d.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"ops@example.com"}, d.sent[0].GetHeader("Cc"))

	var buf bytes.Buffer
	_, err = d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "On its way")
}

func TestSendEmailFailure(t *testing.T) {
	p := NewSMTPProviderWithDialer(&fakeDialer{err: assert.AnError})

	err := p.SendEmail(context.Background(), notifx.EmailMessage{From: "a@example.com", To: []string{"b@example.com"}, Subject: "s"})
	require.Error(t, err)
	assert.True(t, errx.HasCode(err, ErrSendFailed))
}

func TestSendEmailCancelled(t *testing.T) {
	d := &fakeDialer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSMTPProviderWithDialer(d).SendEmail(ctx, notifx.EmailMessage{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.sent)
}
