// internal/form/actions.go
//
// Forms subsystem: post-submit actions.
//
// Context
//   A FormDef may declare actions that run after successful validation.
//   executeActions dispatches to runEmail or runStore.  Failures are logged
//   and never surfaced to the submitter; the submission itself already
//   succeeded.
//
//   email  – to: "admins" | address | [addresses]; subject: optional.
//            Queued through the message outbox.
//   store  – table: optional, default form_submissions.  Writes the clean
//            values as JSON.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/message"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func (f *Form) executeActions(ctx context.Context, data map[string]any) {
	for _, ac := range f.Def.Actions {
		var err error
		switch ac.Type {
		case "email":
			err = f.runEmail(ctx, ac.Params, data)
		case "store":
			err = f.runStore(ctx, ac.Params, data)
		default:
			err = fmt.Errorf("unsupported action")
		}
		if err != nil {
			logger.FromContext(ctx).Error("form action failed",
				zap.String("form", f.Def.ID),
				zap.String("action", ac.Type),
				zap.Error(err))
		}
	}
}

// -----------------------------------------------------------------------------
// Email action
// -----------------------------------------------------------------------------

func (f *Form) runEmail(ctx context.Context, p map[string]any, data map[string]any) error {
	if f.actions.Outbox == nil {
		return errors.New("no outbox configured")
	}

	var to []string
	switch v := p["to"].(type) {
	case string:
		if v == "admins" {
			to = f.actions.AdminEmails
		} else {
			to = []string{v}
		}
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				to = append(to, s)
			}
		}
	default:
		return errors.New("'to' parameter missing or invalid")
	}
	if len(to) == 0 {
		return errors.New("'to' parameter empty")
	}

	subject, _ := p["subject"].(string)
	if subject == "" {
		subject = "Form submission: " + f.Def.Title
	}
	if f.actions.SubjectPrefix != "" {
		subject = "[" + f.actions.SubjectPrefix + "] " + subject
	}

	return f.actions.Outbox.EnqueueEmail(ctx, message.Email{
		To:      to,
		Subject: subject,
		Text:    plainBody(data),
	})
}

// plainBody lists values as "key: value" lines in key order.
func plainBody(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, data[k])
	}
	return b.String()
}

// -----------------------------------------------------------------------------
// Store action
// -----------------------------------------------------------------------------

func (f *Form) runStore(ctx context.Context, p map[string]any, data map[string]any) error {
	if f.actions.DB == nil {
		return errors.New("no database configured")
	}
	table, _ := p["table"].(string)
	if table == "" {
		table = "form_submissions"
	}
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	j, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = f.actions.DB.ExecContext(ctx,
		`INSERT INTO `+table+` (form_id, submitted_at, data) VALUES (?, ?, ?)`,
		f.Def.ID, time.Now().UTC(), j)
	return err
}
