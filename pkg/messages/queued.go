package messages

import (
	"time"

	"github.com/Abraxas-365/courier/pkg/kernel"
)

type QueuedStatus string

const (
	QueuedStatusPending QueuedStatus = "pending"
	QueuedStatusSent    QueuedStatus = "sent"
	QueuedStatusFailed  QueuedStatus = "failed"
)

// DefaultPriority is assigned to every workflow message.
const DefaultPriority = 5

// QueuedMessage is a fully rendered email waiting for the mail sender.
type QueuedMessage struct {
	ID                 int64            `db:"id" json:"id"`
	TemplateName       string           `db:"template_name" json:"template_name"`
	Priority           int              `db:"priority" json:"priority"`
	From               string           `db:"from_address" json:"from" validate:"required,email"`
	FromName           string           `db:"from_name" json:"from_name"`
	To                 string           `db:"to_address" json:"to" validate:"required,email"`
	ToName             string           `db:"to_name" json:"to_name"`
	ReplyTo            string           `db:"reply_to" json:"reply_to,omitempty" validate:"omitempty,email"`
	ReplyToName        string           `db:"reply_to_name" json:"reply_to_name,omitempty"`
	CC                 string           `db:"cc" json:"cc,omitempty"`
	Bcc                string           `db:"bcc" json:"bcc,omitempty"`
	Subject            string           `db:"subject" json:"subject"`
	Body               string           `db:"body" json:"body"`
	AttachmentFilePath string           `db:"attachment_file_path" json:"attachment_file_path,omitempty"`
	AttachmentFileName string           `db:"attachment_file_name" json:"attachment_file_name,omitempty"`
	EmailAccountID     kernel.AccountID `db:"email_account_id" json:"email_account_id" validate:"required"`
	CreatedOnUtc       time.Time        `db:"created_on_utc" json:"created_on_utc" validate:"required"`

	Status    QueuedStatus `db:"status" json:"status"`
	SentTries int          `db:"sent_tries" json:"sent_tries"`
	SentOnUtc *time.Time   `db:"sent_on_utc" json:"sent_on_utc,omitempty"`
	LastError string       `db:"last_error" json:"last_error,omitempty"`
}

// Attachment points at a file to send along with a message. Name defaults to
// the base name of Path.
type Attachment struct {
	Path string
	Name string
}
