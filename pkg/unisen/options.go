// options.go defines client configuration.

package unisen

import (
	"io"
	"log/slog"
	"os"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// DSN of the project. Empty disables sending unless Transport is set.
	DSN string

	// Debug enables debug logging on stderr when Logger is nil.
	Debug bool

	Release     string
	Environment string
	Dist        string
	ServerName  string

	// SampleRate is the fraction of events sent, in (0, 1]. Zero means 1.
	SampleRate float64

	// AttachStacktrace attaches the capture-site stack to message events.
	AttachStacktrace bool

	// MaxBreadcrumbs bounds the scope breadcrumb buffer (default: 100).
	MaxBreadcrumbs int

	// Platform is the host API surface.
	Platform Platform

	// Transport builds the client transport. Defaults to the miniapp
	// transport over Platform.
	Transport TransportFactory

	// StackComputer extracts stacks from captured errors.
	// Defaults to DefaultStackComputer.
	StackComputer StackComputer

	// Integrations replaces the default integrations when non-nil.
	// Pass an empty slice to install none.
	Integrations []Integration

	// BeforeSend may modify or drop (return nil) every event.
	BeforeSend func(event *Event, hint *EventHint) *Event

	// AllowURLs, when set, only keeps events whose innermost frame
	// filename contains one of the patterns.
	AllowURLs []string

	// DenyURLs drops events whose innermost frame filename contains one
	// of the patterns.
	DenyURLs []string

	// IgnoreErrors drops events whose message contains one of the patterns.
	IgnoreErrors []string

	// ExtraOptions toggles the global platform handlers.
	ExtraOptions GlobalHandlersOptions

	// Scrubbing enables redaction of sensitive data when non-nil.
	Scrubbing *ScrubberConfig

	// Logger receives SDK diagnostics.
	Logger *slog.Logger
}

// logger returns the configured logger, a stderr text logger in debug mode,
// or a discarding logger.
func (o ClientOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if o.Debug {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})).
			With("component", "unisen")
	}
	return discardLogger()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
