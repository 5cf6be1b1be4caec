// client.go provides the Client that builds, enriches and sends events.

package unisen

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strongdm/miniapp-observe/pkg/unisen/metrics"
)

// eventPlatform is reported in the platform field of every event.
const eventPlatform = "go"

// Client builds events from captured values and delivers them through its
// transport. A Client is safe for concurrent use.
type Client struct {
	options      ClientOptions
	dsn          *DSN
	transport    Transport
	scope        *Scope
	integrations []Integration
	processors   []namedProcessor
	scrubber     *Scrubber
	computer     StackComputer
	logger       *slog.Logger
	sdk          SdkInfo
	sample       func() float64

	mu          sync.RWMutex
	lastEventID EventID
}

type namedProcessor struct {
	name string
	EventProcessor
}

// NewClient creates a Client and installs its integrations.
func NewClient(opts ClientOptions) (*Client, error) {
	var dsn *DSN
	if opts.DSN != "" {
		d, err := ParseDSN(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("new client: %w", err)
		}
		dsn = d
	}
	if opts.SampleRate < 0 || opts.SampleRate > 1 {
		return nil, fmt.Errorf("new client: sample rate %v out of range [0, 1]", opts.SampleRate)
	}

	c := &Client{
		options:  opts,
		dsn:      dsn,
		scope:    NewScope(opts.MaxBreadcrumbs),
		computer: opts.StackComputer,
		logger:   opts.logger(),
		sample:   rand.Float64,
		sdk: SdkInfo{
			Name:     SDKName,
			Version:  SDKVersion,
			Packages: []SdkPackage{{Name: sdkPackageName, Version: SDKVersion}},
		},
	}
	if c.computer == nil {
		c.computer = DefaultStackComputer
	}
	if opts.Scrubbing != nil {
		c.scrubber = NewScrubber(*opts.Scrubbing)
	}

	c.transport = c.newTransport()

	integrations := opts.Integrations
	if integrations == nil {
		integrations = DefaultIntegrations(opts)
	}
	c.setupIntegrations(integrations)

	return c, nil
}

func (c *Client) newTransport() Transport {
	factory := c.options.Transport
	topts := TransportOptions{Logger: c.logger}
	if c.dsn != nil {
		topts.URL = c.dsn.EnvelopeURL()
	}
	if factory == nil {
		if c.dsn == nil {
			c.logger.Debug("no DSN configured, events will be discarded")
			return &noopTransportInternal{}
		}
		factory = MakeMiniappTransport(c.options.Platform)
	}
	return factory(topts)
}

func (c *Client) setupIntegrations(integrations []Integration) {
	seen := make(map[string]bool, len(integrations))
	for _, integration := range integrations {
		if integration == nil {
			continue
		}
		name := integration.Name()
		if seen[name] {
			continue
		}
		seen[name] = true

		if err := c.safeSetup(integration); err != nil {
			c.logger.Warn("integration setup failed", "integration", name, "error", err)
			continue
		}
		c.integrations = append(c.integrations, integration)
		if p, ok := integration.(EventProcessor); ok {
			c.processors = append(c.processors, namedProcessor{name: name, EventProcessor: p})
		}
		c.logger.Debug("integration installed", "integration", name)
	}
}

func (c *Client) safeSetup(integration Integration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	integration.SetupOnce(c)
	return nil
}

// Options returns the options the client was created with.
func (c *Client) Options() ClientOptions {
	return c.options
}

// Platform returns the configured host platform, possibly nil.
func (c *Client) Platform() Platform {
	return c.options.Platform
}

// Scope returns the client scope applied to every event.
func (c *Client) Scope() *Scope {
	return c.scope
}

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Transport returns the client transport.
func (c *Client) Transport() Transport {
	return c.transport
}

// Integration returns the installed integration with the given name.
func (c *Client) Integration(name string) Integration {
	for _, i := range c.integrations {
		if i.Name() == name {
			return i
		}
	}
	return nil
}

// LastEventID returns the ID of the last event handed to the transport.
func (c *Client) LastEventID() EventID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastEventID
}

// EventFromException builds an event from an arbitrary captured value.
func (c *Client) EventFromException(exception any, hint *EventHint) *Event {
	return EventFromException(c.computer, exception, c.withStacktraceOption(hint))
}

// EventFromMessage builds a message event.
func (c *Client) EventFromMessage(message string, level Level, hint *EventHint) *Event {
	return EventFromMessage(c.computer, message, level, c.withStacktraceOption(hint))
}

func (c *Client) withStacktraceOption(hint *EventHint) *EventHint {
	h := EventHint{}
	if hint != nil {
		h = *hint
	}
	if c.options.AttachStacktrace {
		h.AttachStacktrace = true
	}
	return &h
}

// captureHint copies hint and fills in the capture-site stack. skip counts
// frames above the caller of captureHint.
func (c *Client) captureHint(hint *EventHint, original any, skip int) *EventHint {
	h := EventHint{}
	if hint != nil {
		h = *hint
	}
	if h.SyntheticException == nil {
		h.SyntheticException = NewSyntheticException(skip + 1)
	}
	if h.OriginalException == nil {
		h.OriginalException = original
	}
	return &h
}

// CaptureException captures an error, string, object or event wrapper.
// Returns the event ID, or "" when the event was dropped.
func (c *Client) CaptureException(ctx context.Context, exception any, hint *EventHint) EventID {
	hint = c.captureHint(hint, exception, 1)
	event := c.EventFromException(exception, hint)
	return c.CaptureEvent(ctx, event, hint)
}

// CaptureMessage captures a message at the given level.
// Returns the event ID, or "" when the event was dropped.
func (c *Client) CaptureMessage(ctx context.Context, message string, level Level, hint *EventHint) EventID {
	hint = c.captureHint(hint, message, 1)
	event := c.EventFromMessage(message, level, hint)
	return c.CaptureEvent(ctx, event, hint)
}

// CaptureEvent prepares and sends a fully built event.
// Returns the event ID, or "" when the event was dropped.
func (c *Client) CaptureEvent(ctx context.Context, event *Event, hint *EventHint) EventID {
	if ctx == nil {
		ctx = context.Background()
	}
	if hint == nil {
		hint = &EventHint{}
	}

	prepared := c.prepareEvent(ctx, event, hint)
	if prepared == nil {
		return ""
	}

	c.mu.Lock()
	c.lastEventID = prepared.EventID
	c.mu.Unlock()

	dsn := ""
	if c.dsn != nil {
		dsn = c.dsn.String()
	}
	if err := c.transport.Send(ctx, NewEnvelope(prepared, dsn)); err != nil {
		c.logger.Warn("failed to send event", "event_id", prepared.EventID, "error", err)
	}
	return prepared.EventID
}

// prepareEvent applies defaults, scope, integrations, scrubbing and
// BeforeSend. Returns nil when the event is dropped.
func (c *Client) prepareEvent(ctx context.Context, event *Event, hint *EventHint) *Event {
	if event == nil {
		return nil
	}

	if rate := c.options.SampleRate; rate > 0 && rate < 1 && c.sample() >= rate {
		metrics.EventsDropped.WithLabelValues(metrics.ReasonSampleRate).Inc()
		c.logger.Debug("event dropped by sample rate")
		return nil
	}

	if event.EventID == "" {
		event.EventID = hint.EventID
	}
	if event.EventID == "" {
		event.EventID = newEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Level == "" {
		event.Level = LevelError
	}
	if event.Platform == "" {
		event.Platform = eventPlatform
	}
	sdk := c.sdk
	event.Sdk = &sdk
	if event.Release == "" {
		event.Release = c.options.Release
	}
	if event.Environment == "" {
		event.Environment = c.options.Environment
	}
	if event.Dist == "" {
		event.Dist = c.options.Dist
	}
	if event.ServerName == "" {
		event.ServerName = c.options.ServerName
	}

	c.scope.ApplyToEvent(event)
	applyContext(ctx, event)

	for _, p := range c.processors {
		event = c.runProcessor(ctx, p, event, hint)
		if event == nil {
			metrics.EventsDropped.WithLabelValues(metrics.ReasonEventProcessor).Inc()
			c.logger.Debug("event dropped by integration", "integration", p.name)
			return nil
		}
	}

	if c.scrubber != nil {
		c.scrubber.ScrubEvent(event)
	}

	if c.options.BeforeSend != nil {
		event = c.options.BeforeSend(event, hint)
		if event == nil {
			metrics.EventsDropped.WithLabelValues(metrics.ReasonBeforeSend).Inc()
			c.logger.Debug("event dropped by BeforeSend")
			return nil
		}
	}

	metrics.EventsCaptured.WithLabelValues(string(event.Level)).Inc()
	return event
}

// runProcessor isolates processor failures: a panicking processor leaves
// the event exactly as it was.
func (c *Client) runProcessor(ctx context.Context, p namedProcessor, event *Event, hint *EventHint) (out *Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("event processor panicked", "integration", p.name, "panic", r)
			out = event
		}
	}()
	return p.ProcessEvent(ctx, event.Clone(), hint)
}

// Flush waits for the transport to deliver pending events.
func (c *Client) Flush(ctx context.Context) error {
	return c.transport.Flush(ctx)
}

// Close flushes nothing and releases the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

func newEventID() EventID {
	id := uuid.New()
	return EventID(hex.EncodeToString(id[:]))
}

// noopTransportInternal is an internal noop transport to avoid import cycles.
type noopTransportInternal struct{}

func (t *noopTransportInternal) Send(ctx context.Context, env *Envelope) error {
	return nil
}

func (t *noopTransportInternal) Flush(ctx context.Context) error {
	return nil
}

func (t *noopTransportInternal) Close() error {
	return nil
}
