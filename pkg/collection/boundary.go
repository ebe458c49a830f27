package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
)

// Severity tells the user interface how to present a Notification.
type Severity string

const (
	Positive Severity = "positive"
	Negative Severity = "negative"
	Warning  Severity = "warning"
	Info     Severity = "info"
)

// Notification is a fire-and-forget message for the user.
type Notification struct {
	Severity Severity
	Message  string
	// Detail carries the error kind of a failed call ("Error type: Not Found").
	Detail string
	// Timeout is how long the message should stay visible; zero means the
	// presenter decides.
	Timeout time.Duration
}

// Confirmation is the question put to the user before a destructive action.
type Confirmation struct {
	Title   string
	Message string
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// Confirmer asks the user to approve a destructive action. It returns false if
// the user declines or ctx is done.
type Confirmer interface {
	Confirm(ctx context.Context, c Confirmation) bool
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, c Confirmation) bool

func (f ConfirmerFunc) Confirm(ctx context.Context, c Confirmation) bool { return f(ctx, c) }

// ConfirmAlways approves every confirmation. Meant for batch jobs and callers
// that already asked the user.
var ConfirmAlways Confirmer = ConfirmerFunc(func(ctx context.Context, _ Confirmation) bool {
	return ctx.Err() == nil
})

// ConfirmNever declines every confirmation. It is the default, so a store never
// deletes anything unless a Confirmer was supplied.
var ConfirmNever Confirmer = ConfirmerFunc(func(context.Context, Confirmation) bool {
	return false
})

// LogNotifier returns a Notifier that writes notifications to log.
func LogNotifier(log sdk.Logger) Notifier {
	if log == nil {
		log = sdk.NopLogger{}
	}
	return NotifierFunc(func(n Notification) {
		switch n.Severity {
		case Negative:
			if n.Detail != "" {
				log.Errorf("%s (%s)", n.Message, n.Detail)
			} else {
				log.Error(n.Message)
			}
		case Warning:
			log.Warn(n.Message)
		default:
			log.Info(n.Message)
		}
	})
}

// DeleteItemConfirmation is the question asked before deleting one record. The
// record is named by displayField, or by its id when that field is blank.
func DeleteItemConfirmation(label, displayField string, r schema.Record) Confirmation {
	name := r.String(displayField)
	if schema.IsBlank(name) {
		name = r.IDKey()
	}
	return Confirmation{
		Title:   "Confirm Delete",
		Message: fmt.Sprintf("Are you sure you want to delete %s %q?", label, name),
	}
}

// DeleteSelectedConfirmation is the question asked once before deleting n
// selected records.
func DeleteSelectedConfirmation(label string, n int) Confirmation {
	return Confirmation{
		Title:   "Confirm Delete",
		Message: fmt.Sprintf("Are you sure you want to delete %d %s(s)?", n, label),
	}
}

// failure builds the negative notification for a failed call.
func failure(verb, what string, err error) Notification {
	apiErr := sdk.Classify(err)
	return Notification{
		Severity: Negative,
		Message:  fmt.Sprintf("Failed to %s %s: %s", verb, what, apiErr.Message),
		Detail:   "Error type: " + string(apiErr.Kind),
	}
}
