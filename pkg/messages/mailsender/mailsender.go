// Package mailsender delivers queued messages through a notifx transport.
package mailsender

import (
	"context"
	"path"
	"time"

	"github.com/Abraxas-365/courier/pkg/asyncx"
	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/fsx"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/metrics"
	"github.com/Abraxas-365/courier/pkg/notifx"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	TaskName         = "Send queued emails"
	JobType          = "messages.send"
	DefaultInterval  = 30 * time.Second
	DefaultBatchSize = 50
	DefaultAttempts  = 3
)

var Errors = errx.NewRegistry("MAILSENDER")

var (
	ErrAttachment   = Errors.Register("ATTACHMENT", errx.TypeExternal, 502, "Attachment could not be loaded")
	ErrNoFileSystem = Errors.Register("NO_FILE_SYSTEM", errx.TypeConfiguration, 500, "No attachment storage is configured")
)

// Task sends one batch of pending messages per Execute.
type Task struct {
	outbox     messages.Outbox
	sender     notifx.EmailSender
	files      fsx.FileReader
	limiter    *rate.Limiter
	batchSize  int
	workers    int
	attempts   int
	newBackOff func() backoff.BackOff
	sendOpts   []notifx.Option
	now        func() time.Time
}

type Option func(*Task)

// WithAttachments sets where attachment files are read from.
func WithAttachments(files fsx.FileReader) Option {
	return func(t *Task) { t.files = files }
}

// WithRateLimit caps sends per second; zero or less disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(t *Task) {
		if perSecond <= 0 {
			t.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithBatchSize(n int) Option {
	return func(t *Task) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

func WithWorkers(n int) Option {
	return func(t *Task) {
		if n > 0 {
			t.workers = n
		}
	}
}

// WithMaxAttempts sets how many times one message is tried per run.
func WithMaxAttempts(n int) Option {
	return func(t *Task) {
		if n > 0 {
			t.attempts = n
		}
	}
}

func WithBackOff(fn func() backoff.BackOff) Option {
	return func(t *Task) { t.newBackOff = fn }
}

// WithSendOptions passes opts to every transport call, e.g. an SES
// configuration set.
func WithSendOptions(opts ...notifx.Option) Option {
	return func(t *Task) { t.sendOpts = append(t.sendOpts, opts...) }
}

func WithClock(now func() time.Time) Option {
	return func(t *Task) { t.now = now }
}

func NewTask(outbox messages.Outbox, sender notifx.EmailSender, opts ...Option) *Task {
	t := &Task{
		outbox:    outbox,
		sender:    sender,
		limiter:   rate.NewLimiter(rate.Inf, 0),
		batchSize: DefaultBatchSize,
		workers:   2,
		attempts:  DefaultAttempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Execute sends up to one batch. Per-message failures are recorded on the
// message; only an unreadable outbox or a cancelled ctx is returned.
func (t *Task) Execute(ctx context.Context) error {
	batch, err := t.outbox.Pending(ctx, t.batchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	delivered, err := asyncx.Pool(ctx, t.workers, batch, t.deliver)
	sent := 0
	for _, ok := range delivered {
		if ok {
			sent++
		}
	}
	logx.WithFields(logx.Fields{
		"batch":  len(batch),
		"sent":   sent,
		"failed": len(batch) - sent,
	}).Info("mailsender: batch processed")
	return err
}

func (t *Task) deliver(ctx context.Context, msg *messages.QueuedMessage) (bool, error) {
	log := logx.WithFields(logx.Fields{"queued_id": msg.ID, "template": msg.TemplateName})

	email, err := t.compose(ctx, msg)
	if err != nil {
		t.fail(ctx, msg, err)
		return false, nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		// Left pending for the next run.
		return false, ctx.Err()
	}

	if err := t.send(ctx, email); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		t.fail(ctx, msg, err)
		return false, nil
	}

	if err := t.outbox.MarkSent(ctx, msg.ID, t.now()); err != nil {
		log.WithError(err).Error("mailsender: sent but could not mark message")
	}
	metrics.EmailsSent.Inc()
	log.Debug("mailsender: message sent")
	return true, nil
}

func (t *Task) send(ctx context.Context, email notifx.EmailMessage) error {
	b := backoff.WithContext(backoff.WithMaxRetries(t.newBackOff(), uint64(t.attempts-1)), ctx)
	return backoff.Retry(func() error {
		err := t.sender.SendEmail(ctx, email, t.sendOpts...)
		if err != nil && errx.IsType(err, errx.TypeValidation) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func (t *Task) fail(ctx context.Context, msg *messages.QueuedMessage, cause error) {
	metrics.EmailFailures.Inc()
	logx.WithError(cause).WithField("queued_id", msg.ID).Warn("mailsender: delivery failed")
	if err := t.outbox.MarkFailed(ctx, msg.ID, cause.Error()); err != nil {
		logx.WithError(err).WithField("queued_id", msg.ID).Error("mailsender: could not mark message failed")
	}
}

// compose maps a queued message onto the transport model and loads its
// attachment.
func (t *Task) compose(ctx context.Context, msg *messages.QueuedMessage) (notifx.EmailMessage, error) {
	email := notifx.EmailMessage{
		From:        msg.From,
		FromName:    msg.FromName,
		To:          []string{msg.To},
		ToName:      msg.ToName,
		CC:          notifx.SplitAddresses(msg.CC),
		BCC:         notifx.SplitAddresses(msg.Bcc),
		ReplyTo:     msg.ReplyTo,
		ReplyToName: msg.ReplyToName,
		Subject:     msg.Subject,
		HTMLBody:    msg.Body,
	}
	if msg.AttachmentFilePath == "" {
		return email, nil
	}
	if t.files == nil {
		return email, Errors.New(ErrNoFileSystem).WithDetail("path", msg.AttachmentFilePath)
	}

	data, err := t.files.ReadFile(ctx, msg.AttachmentFilePath)
	if err != nil {
		return email, Errors.NewWithCause(ErrAttachment, err).WithDetail("path", msg.AttachmentFilePath)
	}
	name := msg.AttachmentFileName
	if name == "" {
		name = path.Base(msg.AttachmentFilePath)
	}
	email.Attachments = []notifx.Attachment{{
		Filename:    name,
		ContentType: fsx.ContentType(name),
		Data:        data,
	}}
	return email, nil
}
