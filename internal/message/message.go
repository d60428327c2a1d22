// internal/message/message.go
//
// Outbound email queue.
//
// Context
//   Request handlers never talk to an SMTP server.  They enqueue an Email
//   into the `email_outbox` table and return; a separate delivery worker
//   (outside this binary) drains the table and sets sent_at.  The table is
//   created by the core component's migrations.
//
//   Tests and tools that should not write to the database use LogOutbox,
//   which only logs the payload.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Email represents one outbound message.
type Email struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Enqueuer accepts outbound email.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, msg Email) error
}

// ErrNoRecipients is returned for an Email with an empty To list.
var ErrNoRecipients = errors.New("message: no recipients")

// Outbox stores emails in the email_outbox table.
type Outbox struct {
	db   *sqlx.DB
	from string
}

// NewOutbox returns an Outbox writing through db.  from is the sender
// address recorded on each row.
func NewOutbox(db *sqlx.DB, from string) *Outbox {
	return &Outbox{db: db, from: from}
}

// EnqueueEmail inserts msg.
func (o *Outbox) EnqueueEmail(ctx context.Context, msg Email) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	_, err := o.db.ExecContext(ctx,
		`INSERT INTO email_outbox (sender, recipients, subject, body_text, body_html, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.from, strings.Join(msg.To, ","), msg.Subject, msg.Text, msg.HTML, time.Now().UTC())
	if err != nil {
		return err
	}
	zap.S().Infow("email queued", "to", len(msg.To), "subject", msg.Subject)
	return nil
}

// LogOutbox logs instead of storing.
type LogOutbox struct{}

// EnqueueEmail logs the email envelope.
func (LogOutbox) EnqueueEmail(_ context.Context, msg Email) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	zap.S().Infow("email (log only)", "to", msg.To, "subject", msg.Subject, "len", len(msg.Text))
	return nil
}
