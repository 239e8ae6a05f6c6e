package mailsender

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/messages/messagesinfra"
	"github.com/Abraxas-365/courier/pkg/notifx"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []notifx.EmailMessage
	failures map[string]int
	err      error
	calls    int
}

func (f *fakeSender) SendEmail(_ context.Context, msg notifx.EmailMessage, _ ...notifx.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures[msg.Subject] > 0 {
		f.failures[msg.Subject]--
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

var sentAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func queued(subject string) *messages.QueuedMessage {
	return &messages.QueuedMessage{
		TemplateName:   "Customer.WelcomeMessage",
		Priority:       messages.DefaultPriority,
		From:           "shop@example.com",
		FromName:       "Shop",
		To:             "jane@example.com",
		ToName:         "Jane",
		Bcc:            "audit@example.com; archive@example.com",
		Subject:        subject,
		Body:           "<p>Hi</p>",
		EmailAccountID: 1,
		CreatedOnUtc:   sentAt,
	}
}

func newTask(q messages.Outbox, s notifx.EmailSender, opts ...Option) *Task {
	opts = append([]Option{
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		WithClock(func() time.Time { return sentAt }),
	}, opts...)
	return NewTask(q, s, opts...)
}

func TestExecuteSendsPending(t *testing.T) {
	q := messagesinfra.NewMemoryMailQueue()
	ctx := context.Background()
	for _, s := range []string{"one", "two", "three"} {
		_, err := q.Enqueue(ctx, queued(s))
		require.NoError(t, err)
	}
	sender := &fakeSender{}

	require.NoError(t, newTask(q, sender, WithWorkers(2)).Execute(ctx))

	assert.Len(t, sender.sent, 3)
	for _, m := range q.All() {
		assert.Equal(t, messages.QueuedStatusSent, m.Status)
		require.NotNil(t, m.SentOnUtc)
		assert.Equal(t, sentAt, *m.SentOnUtc)
	}

	first := sender.sent[0]
	assert.Equal(t, []string{"jane@example.com"}, first.To)
	assert.Equal(t, []string{"audit@example.com", "archive@example.com"}, first.BCC)
	assert.Equal(t, "<p>Hi</p>", first.HTMLBody)
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	q := messagesinfra.NewMemoryMailQueue()
	ctx := context.Background()
	_, err := q.Enqueue(ctx, queued("flaky"))
	require.NoError(t, err)

	sender := &fakeSender{failures: map[string]int{"flaky": 2}, err: assert.AnError}
	require.NoError(t, newTask(q, sender, WithMaxAttempts(3)).Execute(ctx))

	assert.Equal(t, 3, sender.calls)
	assert.Equal(t, messages.QueuedStatusSent, q.All()[0].Status)
}

func TestExecuteMarksFailedAfterAttempts(t *testing.T) {
	q := messagesinfra.NewMemoryMailQueue()
	ctx := context.Background()
	_, err := q.Enqueue(ctx, queued("down"))
	require.NoError(t, err)

	sender := &fakeSender{failures: map[string]int{"down": 10}, err: assert.AnError}
	require.NoError(t, newTask(q, sender, WithMaxAttempts(2)).Execute(ctx))

	assert.Equal(t, 2, sender.calls)
	stored := q.All()[0]
	assert.Equal(t, messages.QueuedStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, assert.AnError.Error())
}

func TestExecuteDoesNotRetryValidationErrors(t *testing.T) {
	q := messagesinfra.NewMemoryMailQueue()
	ctx := context.Background()
	_, err := q.Enqueue(ctx, queued("bad"))
	require.NoError(t, err)

	invalid := errx.New("no recipients", errx.TypeValidation)
	sender := &fakeSender{failures: map[string]int{"bad": 10}, err: invalid}
	require.NoError(t, newTask(q, sender, WithMaxAttempts(5)).Execute(ctx))

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, messages.QueuedStatusFailed, q.All()[0].Status)
}

func TestExecuteLoadsAttachment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "12.pdf"), []byte("%PDF"), 0o600))
	files, err := fsxlocal.NewLocalFileSystem(dir)
	require.NoError(t, err)

	q := messagesinfra.NewMemoryMailQueue()
	ctx := context.Background()
	msg := queued("invoice")
	msg.AttachmentFilePath = "12.pdf"
	msg.AttachmentFileName = "invoice-12.pdf"
	_, err = q.Enqueue(ctx, msg)
	require.NoError(t, err)

	missing := queued("missing")
	missing.AttachmentFilePath = "13.pdf"
	_, err = q.Enqueue(ctx, missing)
	require.NoError(t, err)

	sender := &fakeSender{}
	require.NoError(t, newTask(q, sender, WithAttachments(files), WithWorkers(1)).Execute(ctx))

	require.Len(t, sender.sent, 1)
	require.Len(t, sender.sent[0].Attachments, 1)
	att := sender.sent[0].Attachments[0]
	assert.Equal(t, "invoice-12.pdf", att.Filename)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Equal(t, []byte("%PDF"), att.Data)

	all := q.All()
	assert.Equal(t, messages.QueuedStatusSent, all[0].Status)
	assert.Equal(t, messages.QueuedStatusFailed, all[1].Status)
	assert.Contains(t, all[1].LastError, "ATTACHMENT")
}

func TestExecuteAttachmentWithoutStorage(t *testing.T) {
	q := messagesinfra.NewMemoryMailQueue()
	ctx := context.Background()
	msg := queued("invoice")
	msg.AttachmentFilePath = "12.pdf"
	_, err := q.Enqueue(ctx, msg)
	require.NoError(t, err)

	sender := &fakeSender{}
	require.NoError(t, newTask(q, sender).Execute(ctx))

	assert.Empty(t, sender.sent)
	assert.Contains(t, q.All()[0].LastError, "NO_FILE_SYSTEM")
}

func TestExecuteHonoursBatchSize(t *testing.T) {
	q := messagesinfra.NewMemoryMailQueue()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, queued("bulk"))
		require.NoError(t, err)
	}
	sender := &fakeSender{}
	task := newTask(q, sender, WithBatchSize(2), WithRateLimit(1000, 1))

	require.NoError(t, task.Execute(ctx))
	assert.Len(t, sender.sent, 2)

	pending, err := q.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestExecuteCancelledLeavesPending(t *testing.T) {
	q := messagesinfra.NewMemoryMailQueue()
	_, err := q.Enqueue(context.Background(), queued("later"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &fakeSender{}
	err = newTask(q, sender).Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.sent)
	assert.Equal(t, messages.QueuedStatusPending, q.All()[0].Status)
}
