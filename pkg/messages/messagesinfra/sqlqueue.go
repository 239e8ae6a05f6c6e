package messagesinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/jmoiron/sqlx"
)

const queuedInsert = `INSERT INTO queued_emails (
		template_name, priority, from_address, from_name, to_address, to_name,
		reply_to, reply_to_name, cc, bcc, subject, body,
		attachment_file_path, attachment_file_name, email_account_id,
		created_on_utc, status, sent_tries
	) VALUES (
		:template_name, :priority, :from_address, :from_name, :to_address, :to_name,
		:reply_to, :reply_to_name, :cc, :bcc, :subject, :body,
		:attachment_file_path, :attachment_file_name, :email_account_id,
		:created_on_utc, :status, :sent_tries
	)`

const queuedColumns = `id, template_name, priority, from_address, from_name, to_address, to_name,
	reply_to, reply_to_name, cc, bcc, subject, body,
	attachment_file_path, attachment_file_name, email_account_id,
	created_on_utc, status, sent_tries, sent_on_utc, last_error`

// SQLMailQueue stores queued messages in queued_emails. It is both the
// workflow's MailQueue and the sender's Outbox.
type SQLMailQueue struct {
	db *sqlx.DB
}

func NewSQLMailQueue(db *sqlx.DB) *SQLMailQueue {
	return &SQLMailQueue{db: db}
}

func (q *SQLMailQueue) Enqueue(ctx context.Context, msg *messages.QueuedMessage) (int64, error) {
	if msg.Status == "" {
		msg.Status = messages.QueuedStatusPending
	}

	if isPostgres(q.db) {
		rows, err := q.db.NamedQueryContext(ctx, queuedInsert+` RETURNING id`, msg)
		if err != nil {
			return 0, storageError(err, "enqueue")
		}
		defer rows.Close()

		var id int64
		if rows.Next() {
			if err := rows.Scan(&id); err != nil {
				return 0, storageError(err, "enqueue")
			}
		}
		if err := rows.Err(); err != nil {
			return 0, storageError(err, "enqueue")
		}
		msg.ID = id
		return id, nil
	}

	res, err := q.db.NamedExecContext(ctx, queuedInsert, msg)
	if err != nil {
		return 0, storageError(err, "enqueue")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageError(err, "enqueue")
	}
	msg.ID = id
	return id, nil
}

// Pending returns up to limit pending messages, highest priority first.
func (q *SQLMailQueue) Pending(ctx context.Context, limit int) ([]*messages.QueuedMessage, error) {
	query := q.db.Rebind(`SELECT ` + queuedColumns + ` FROM queued_emails
		WHERE status = ? ORDER BY priority DESC, created_on_utc, id LIMIT ?`)

	var out []*messages.QueuedMessage
	if err := q.db.SelectContext(ctx, &out, query, messages.QueuedStatusPending, limit); err != nil {
		return nil, storageError(err, "pending")
	}
	return out, nil
}

func (q *SQLMailQueue) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return q.mark(ctx, "mark_sent", id,
		`UPDATE queued_emails SET status = ?, sent_on_utc = ?, sent_tries = sent_tries + 1, last_error = '' WHERE id = ?`,
		messages.QueuedStatusSent, at, id)
}

func (q *SQLMailQueue) MarkFailed(ctx context.Context, id int64, reason string) error {
	return q.mark(ctx, "mark_failed", id,
		`UPDATE queued_emails SET status = ?, sent_tries = sent_tries + 1, last_error = ? WHERE id = ?`,
		messages.QueuedStatusFailed, reason, id)
}

func (q *SQLMailQueue) mark(ctx context.Context, op string, id int64, query string, args ...any) error {
	res, err := q.db.ExecContext(ctx, q.db.Rebind(query), args...)
	if err != nil {
		return storageError(err, op).WithDetail("queued_id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageError(err, op).WithDetail("queued_id", id)
	}
	if n == 0 {
		return messages.Errors.New(messages.ErrNotFound).WithDetail("queued_id", id)
	}
	return nil
}

// SQLLogSink writes operational log entries to the log table.
type SQLLogSink struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLLogSink(db *sqlx.DB) *SQLLogSink {
	return &SQLLogSink{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLLogSink) Log(ctx context.Context, level logx.Level, title, details string) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO log (log_level, short_message, full_message, created_on_utc) VALUES (?, ?, ?, ?)`),
		level.String(), title, details, s.now())
	if err != nil {
		return storageError(err, "log")
	}
	return nil
}

var (
	_ messages.MailQueue = (*SQLMailQueue)(nil)
	_ messages.Outbox    = (*SQLMailQueue)(nil)
	_ messages.LogSink   = (*SQLLogSink)(nil)
)
