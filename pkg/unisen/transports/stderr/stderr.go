// Package stderr provides a transport that prints events to stderr in a
// human-readable format. Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
)

// Option configures the stderr transport.
type Option func(*config)

type config struct {
	verbose bool
	out     io.Writer
}

// WithVerbose enables stack frames and tags in the output.
func WithVerbose() Option {
	return func(c *config) {
		c.verbose = true
	}
}

// WithWriter redirects output (default: os.Stderr).
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.out = w
		}
	}
}

// stderrTransport writes events in human-readable format.
type stderrTransport struct {
	mu      sync.Mutex
	verbose bool
	out     io.Writer
}

// New creates a transport that writes to stderr.
func New(opts ...Option) unisen.Transport {
	cfg := &config{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrTransport{
		verbose: cfg.verbose,
		out:     cfg.out,
	}
}

// Factory returns a unisen.TransportFactory building stderr transports.
func Factory(opts ...Option) unisen.TransportFactory {
	return func(unisen.TransportOptions) unisen.Transport {
		return New(opts...)
	}
}

// Send formats and outputs every event of the envelope.
func (t *stderrTransport) Send(ctx context.Context, env *unisen.Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, event := range env.Events {
		t.write(event)
	}
	return nil
}

func (t *stderrTransport) write(event *unisen.Event) {
	level := strings.ToUpper(string(event.Level))
	timestamp := event.Timestamp.Format("2006-01-02T15:04:05Z07:00")

	// Format: [UNISEN] <timestamp> <LEVEL> <type> on <transaction> (app: <app_name>)
	errorType, message, frames := summarize(event)
	parts := []string{fmt.Sprintf("[UNISEN] %s %s %s", timestamp, level, errorType)}
	if event.Transaction != "" {
		parts = append(parts, fmt.Sprintf("on %s", event.Transaction))
	}
	if app, ok := event.Contexts["app"]["app_name"].(string); ok && app != "" {
		parts = append(parts, fmt.Sprintf("(app: %s)", app))
	}
	fmt.Fprintln(t.out, strings.Join(parts, " "))

	if message != "" {
		fmt.Fprintf(t.out, "        Message: %s\n", message)
	}
	fmt.Fprintf(t.out, "        Fingerprint: %s\n", unisen.Fingerprint(event))
	if id, ok := unisen.EventContextID(event); ok {
		fmt.Fprintf(t.out, "        Context: %d\n", id)
	}

	if !t.verbose {
		return
	}
	if len(event.Tags) > 0 {
		fmt.Fprintf(t.out, "        Tags:\n")
		for k, v := range event.Tags {
			fmt.Fprintf(t.out, "          %s=%s\n", k, v)
		}
	}
	if len(frames) > 0 {
		fmt.Fprintf(t.out, "        Stack trace:\n")
		for i := len(frames) - 1; i >= 0; i-- {
			f := frames[i]
			fmt.Fprintf(t.out, "          %s\n            %s:%d\n", f.Function, f.Filename, f.Lineno)
		}
	}
}

// summarize returns the error type, message and frames shown for event.
func summarize(event *unisen.Event) (string, string, []unisen.Frame) {
	if event.Exception == nil || len(event.Exception.Values) == 0 {
		return "message", event.Message, nil
	}
	ex := event.Exception.Values[0]
	errorType := ex.Type
	if errorType == "" {
		errorType = "exception"
	}
	var frames []unisen.Frame
	if ex.Stacktrace != nil {
		frames = ex.Stacktrace.Frames
	}
	return errorType, ex.Value, frames
}

// Flush is a no-op for the stderr transport.
func (t *stderrTransport) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the stderr transport.
func (t *stderrTransport) Close() error {
	return nil
}
