// recover.go provides the Recover helper for panic capture.

package unisen

import (
	"context"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Recover captures a panic as a fatal event and returns the recovered value.
// Recover does NOT re-panic after recording. A nil client falls back to the
// client installed by Init. Recover must be deferred directly:
//
//	func handler(ctx context.Context) {
//	    defer unisen.Recover(ctx, client)
//	    // code that might panic
//	}
//
// To act on the recovered value, recover yourself and use CaptureRecovered:
//
//	func handler(ctx context.Context) (err error) {
//	    defer func() {
//	        if r := recover(); r != nil {
//	            unisen.CaptureRecovered(ctx, client, r)
//	            err = fmt.Errorf("panic: %v", r)
//	        }
//	    }()
//	    // code that might panic
//	}
func Recover(ctx context.Context, client *Client) any {
	r := recover()
	if r == nil {
		return nil
	}
	CaptureRecovered(ctx, client, r)
	return r
}

// CaptureRecovered records a value obtained from recover() as a fatal,
// unhandled event. Returns "" when there is no client or the event was
// dropped.
func CaptureRecovered(ctx context.Context, client *Client, recovered any) EventID {
	if client == nil {
		client = CurrentClient()
	}
	if client == nil {
		return ""
	}

	hint := &EventHint{
		Mechanism:         &Mechanism{Type: "panic", Handled: boolPtr(false)},
		OriginalException: recovered,
	}
	event := client.EventFromException(panicError(recovered), hint)
	event.Level = LevelFatal
	return client.CaptureEvent(ctx, event, hint)
}

// panicError converts a recovered value into an error carrying the stack of
// the panicking goroutine.
func panicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return pkgerrors.WithStack(err)
	}
	return pkgerrors.New(formatRecovered(recovered))
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if s, ok := recovered.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", recovered)
}
