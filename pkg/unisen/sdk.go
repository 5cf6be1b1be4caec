// sdk.go holds the process-wide client and the package-level capture
// functions that delegate to it.

package unisen

import (
	"context"
	"sync/atomic"
)

var currentClient atomic.Pointer[Client]

// Init creates a client from opts and installs it as the current client.
// A previously installed client is replaced but not closed.
func Init(opts ClientOptions) (*Client, error) {
	client, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	currentClient.Store(client)
	return client, nil
}

// CurrentClient returns the client installed by Init, or nil.
func CurrentClient() *Client {
	return currentClient.Load()
}

// CaptureException captures exception on the current client.
// Returns "" when no client is installed or the event was dropped.
func CaptureException(ctx context.Context, exception any, hint *EventHint) EventID {
	client := CurrentClient()
	if client == nil {
		return ""
	}
	return client.CaptureException(ctx, exception, client.captureHint(hint, exception, 1))
}

// CaptureMessage captures message on the current client.
func CaptureMessage(ctx context.Context, message string, level Level, hint *EventHint) EventID {
	client := CurrentClient()
	if client == nil {
		return ""
	}
	return client.CaptureMessage(ctx, message, level, client.captureHint(hint, message, 1))
}

// CaptureEvent sends a built event through the current client.
func CaptureEvent(ctx context.Context, event *Event, hint *EventHint) EventID {
	client := CurrentClient()
	if client == nil {
		return ""
	}
	return client.CaptureEvent(ctx, event, hint)
}

// ConfigureScope calls fn with the current client's scope.
func ConfigureScope(fn func(scope *Scope)) {
	if client := CurrentClient(); client != nil {
		fn(client.Scope())
	}
}

// AddBreadcrumb records a breadcrumb on the current client's scope.
func AddBreadcrumb(b Breadcrumb) {
	ConfigureScope(func(scope *Scope) {
		scope.AddBreadcrumb(b)
	})
}

// LastEventID returns the ID of the last event sent by the current client.
func LastEventID() EventID {
	client := CurrentClient()
	if client == nil {
		return ""
	}
	return client.LastEventID()
}

// Flush waits for pending events. Reports false when there is no client or
// ctx ends first.
func Flush(ctx context.Context) bool {
	client := CurrentClient()
	if client == nil {
		return false
	}
	return client.Flush(ctx) == nil
}

// Close flushes pending events and releases the current client.
func Close(ctx context.Context) bool {
	client := CurrentClient()
	if client == nil {
		return false
	}
	flushed := client.Flush(ctx) == nil
	if err := client.Close(); err != nil {
		client.Logger().Warn("failed to close transport", "error", err)
		return false
	}
	currentClient.CompareAndSwap(client, nil)
	return flushed
}

// ReportDialogOptions configures a user feedback dialog.
type ReportDialogOptions struct {
	EventID EventID
	User    *User
}

// ShowReportDialog is not supported on miniapp hosts and only logs a warning.
func ShowReportDialog(opts ReportDialogOptions) {
	logger := discardLogger()
	if client := CurrentClient(); client != nil {
		logger = client.Logger()
	}
	logger.Warn("showReportDialog is not supported in miniapp environment", "event_id", opts.EventID)
}
