package messagesinfra

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedFixture() *messages.QueuedMessage {
	return &messages.QueuedMessage{
		TemplateName:   "Customer.WelcomeMessage",
		Priority:       messages.DefaultPriority,
		From:           "shop@example.com",
		To:             "jane@example.com",
		Subject:        "Welcome",
		Body:           "<p>Hi</p>",
		EmailAccountID: 1,
		CreatedOnUtc:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLMailQueue_EnqueuePostgresReturnsID(t *testing.T) {
	db, mock := newMockDB(t, "postgres")
	q := NewSQLMailQueue(db)

	mock.ExpectQuery(`INSERT INTO queued_emails .* RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	msg := queuedFixture()
	id, err := q.Enqueue(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, int64(42), msg.ID)
	assert.Equal(t, messages.QueuedStatusPending, msg.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMailQueue_EnqueueMySQLUsesLastInsertID(t *testing.T) {
	db, mock := newMockDB(t, "mysql")
	q := NewSQLMailQueue(db)

	mock.ExpectExec(`INSERT INTO queued_emails`).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := q.Enqueue(context.Background(), queuedFixture())
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMailQueue_EnqueueFailure(t *testing.T) {
	db, mock := newMockDB(t, "mysql")
	q := NewSQLMailQueue(db)

	mock.ExpectExec(`INSERT INTO queued_emails`).WillReturnError(assert.AnError)

	_, err := q.Enqueue(context.Background(), queuedFixture())
	require.Error(t, err)
	assert.True(t, errx.HasCode(err, messages.ErrStorage))
}

func TestSQLMailQueue_Pending(t *testing.T) {
	db, mock := newMockDB(t, "postgres")
	q := NewSQLMailQueue(db)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"id", "template_name", "priority", "from_address", "from_name", "to_address", "to_name",
		"reply_to", "reply_to_name", "cc", "bcc", "subject", "body",
		"attachment_file_path", "attachment_file_name", "email_account_id",
		"created_on_utc", "status", "sent_tries", "sent_on_utc", "last_error"}
	mock.ExpectQuery(`FROM queued_emails WHERE status = \$1 ORDER BY priority DESC, created_on_utc, id LIMIT \$2`).
		WithArgs("pending", 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(3, "OrderPlaced.CustomerNotification", 5, "shop@example.com", "Shop", "jane@example.com", "Jane",
				"", "", "", "", "Order #12", "<p>Thanks</p>",
				"/invoices/12.pdf", "invoice.pdf", 1,
				created, "pending", 0, nil, ""))

	pending, err := q.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(3), pending[0].ID)
	assert.Equal(t, "invoice.pdf", pending[0].AttachmentFileName)
	assert.Nil(t, pending[0].SentOnUtc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMailQueue_Mark(t *testing.T) {
	db, mock := newMockDB(t, "postgres")
	q := NewSQLMailQueue(db)
	at := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE queued_emails SET status = \$1, sent_on_utc = \$2`).
		WithArgs("sent", at, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE queued_emails SET status = \$1, sent_tries = sent_tries \+ 1, last_error = \$2`).
		WithArgs("failed", "550 mailbox unavailable", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE queued_emails SET status`).
		WithArgs("sent", at, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, q.MarkSent(context.Background(), 3, at))
	require.NoError(t, q.MarkFailed(context.Background(), 4, "550 mailbox unavailable"))

	err := q.MarkSent(context.Background(), 99, at)
	require.Error(t, err)
	assert.True(t, errx.HasCode(err, messages.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLogSink(t *testing.T) {
	db, mock := newMockDB(t, "mysql")
	sink := NewSQLLogSink(db)
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return at }

	mock.ExpectExec(`INSERT INTO log \(log_level, short_message, full_message, created_on_utc\) VALUES \(\?, \?, \?, \?\)`).
		WithArgs(logx.LevelDebug.String(), "Message template warm-up started", "", at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, sink.Log(context.Background(), logx.LevelDebug, "Message template warm-up started", ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRunsEveryStatement(t *testing.T) {
	db, mock := newMockDB(t, "postgres")
	mock.MatchExpectationsInOrder(true)

	for _, table := range []string{"stores", "store_mappings", "languages", "email_accounts", "message_templates"} {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ` + table + ` `).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_message_templates_name`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS localized_message_templates`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS queued_emails`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_queued_emails_pending`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS log `).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
