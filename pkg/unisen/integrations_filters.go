// integrations_filters.go drops unwanted events: inbound filters, dedupe
// and crawler noise.

package unisen

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Integration names.
const (
	InboundFiltersIntegrationName        = "InboundFilters"
	DedupeIntegrationName                = "Dedupe"
	IgnoreMpcrawlerErrorsIntegrationName = "IgnoreMpcrawlerErrors"
)

// mpcrawlerScene is the launch scene of the wechat sitemap crawler.
const mpcrawlerScene = 1129

// defaultIgnoreErrors are dropped regardless of configuration.
var defaultIgnoreErrors = []string{"Script error."}

// InboundFiltersOptions configures InboundFiltersIntegration. All patterns
// are substring matches.
type InboundFiltersOptions struct {
	IgnoreErrors []string
	AllowURLs    []string
	DenyURLs     []string
}

// InboundFiltersIntegration drops events by message or by the filename of
// the innermost stack frame.
type InboundFiltersIntegration struct {
	opts   InboundFiltersOptions
	logger *slog.Logger
}

// NewInboundFiltersIntegration creates the integration.
func NewInboundFiltersIntegration(opts InboundFiltersOptions) *InboundFiltersIntegration {
	opts.IgnoreErrors = append(append([]string(nil), defaultIgnoreErrors...), opts.IgnoreErrors...)
	return &InboundFiltersIntegration{opts: opts, logger: discardLogger()}
}

// Name implements Integration.
func (f *InboundFiltersIntegration) Name() string {
	return InboundFiltersIntegrationName
}

// SetupOnce implements Integration.
func (f *InboundFiltersIntegration) SetupOnce(client *Client) {
	f.logger = client.Logger()
}

// ProcessEvent implements EventProcessor.
func (f *InboundFiltersIntegration) ProcessEvent(ctx context.Context, event *Event, hint *EventHint) *Event {
	for _, msg := range eventMessages(event) {
		if containsAny(msg, f.opts.IgnoreErrors) {
			f.logger.Debug("event dropped by ignore filter", "message", msg)
			return nil
		}
	}

	url := eventFilename(event)
	if url != "" && containsAny(url, f.opts.DenyURLs) {
		f.logger.Debug("event dropped by deny filter", "url", url)
		return nil
	}
	if len(f.opts.AllowURLs) > 0 && url != "" && !containsAny(url, f.opts.AllowURLs) {
		f.logger.Debug("event dropped by allow filter", "url", url)
		return nil
	}
	return event
}

// eventMessages returns the strings ignore patterns are matched against.
func eventMessages(event *Event) []string {
	var out []string
	if event.Message != "" {
		out = append(out, event.Message)
	}
	if event.Exception != nil {
		for _, ex := range event.Exception.Values {
			if ex.Value != "" {
				out = append(out, ex.Value)
			}
			if ex.Type != "" && ex.Value != "" {
				out = append(out, ex.Type+": "+ex.Value)
			}
		}
	}
	return out
}

// eventFilename returns the filename of the innermost frame of the last
// exception that has a stack.
func eventFilename(event *Event) string {
	if event.Exception == nil {
		return ""
	}
	values := event.Exception.Values
	for i := len(values) - 1; i >= 0; i-- {
		st := values[i].Stacktrace
		if st == nil || len(st.Frames) == 0 {
			continue
		}
		for j := len(st.Frames) - 1; j >= 0; j-- {
			if f := st.Frames[j].Filename; f != "" && f != "<anonymous>" {
				return f
			}
		}
	}
	return ""
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// DedupeIntegration drops an event identical to the previous one.
type DedupeIntegration struct {
	mu   sync.Mutex
	last string
}

// NewDedupeIntegration creates the integration.
func NewDedupeIntegration() *DedupeIntegration {
	return &DedupeIntegration{}
}

// Name implements Integration.
func (d *DedupeIntegration) Name() string {
	return DedupeIntegrationName
}

// SetupOnce implements Integration.
func (d *DedupeIntegration) SetupOnce(client *Client) {}

// ProcessEvent implements EventProcessor.
func (d *DedupeIntegration) ProcessEvent(ctx context.Context, event *Event, hint *EventHint) *Event {
	key := dedupeKey(event)

	d.mu.Lock()
	defer d.mu.Unlock()
	if key == d.last {
		return nil
	}
	d.last = key
	return event
}

func dedupeKey(event *Event) string {
	value := ""
	if ex := event.firstException(); ex != nil {
		value = ex.Value
	}
	return Fingerprint(event) + "\x00" + event.Message + "\x00" + value
}

// IgnoreMpcrawlerErrorsIntegration drops events raised while the wechat
// sitemap crawler renders the miniapp.
type IgnoreMpcrawlerErrorsIntegration struct {
	platform Platform
}

// NewIgnoreMpcrawlerErrorsIntegration creates the integration.
func NewIgnoreMpcrawlerErrorsIntegration() *IgnoreMpcrawlerErrorsIntegration {
	return &IgnoreMpcrawlerErrorsIntegration{}
}

// Name implements Integration.
func (m *IgnoreMpcrawlerErrorsIntegration) Name() string {
	return IgnoreMpcrawlerErrorsIntegrationName
}

// SetupOnce implements Integration.
func (m *IgnoreMpcrawlerErrorsIntegration) SetupOnce(client *Client) {
	m.platform = client.Platform()
}

// ProcessEvent implements EventProcessor.
func (m *IgnoreMpcrawlerErrorsIntegration) ProcessEvent(ctx context.Context, event *Event, hint *EventHint) *Event {
	if appName(m.platform) != AppWechat {
		return event
	}
	source, ok := m.platform.(LaunchOptionsSource)
	if !ok {
		return event
	}
	opts, err := source.GetLaunchOptionsSync()
	if err != nil {
		return event
	}
	if opts.Scene == mpcrawlerScene {
		return nil
	}
	return event
}
