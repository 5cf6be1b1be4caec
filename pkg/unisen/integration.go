// integration.go defines the Integration extension points.

package unisen

import "context"

// Integration is installed once per client.
type Integration interface {
	// Name identifies the integration; a client installs one per name.
	Name() string

	// SetupOnce is called when the client is created.
	SetupOnce(client *Client)
}

// EventProcessor is an optional Integration capability that sees every
// event before it is sent. Returning nil drops the event.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *Event, hint *EventHint) *Event
}

// EventProcessorFunc adapts a function to EventProcessor.
type EventProcessorFunc func(ctx context.Context, event *Event, hint *EventHint) *Event

// ProcessEvent calls f.
func (f EventProcessorFunc) ProcessEvent(ctx context.Context, event *Event, hint *EventHint) *Event {
	return f(ctx, event, hint)
}

// DefaultIntegrations returns the integrations installed when
// ClientOptions.Integrations is nil.
func DefaultIntegrations(opts ClientOptions) []Integration {
	return []Integration{
		NewInboundFiltersIntegration(InboundFiltersOptions{
			IgnoreErrors: opts.IgnoreErrors,
			AllowURLs:    opts.AllowURLs,
			DenyURLs:     opts.DenyURLs,
		}),
		NewDedupeIntegration(),
		NewGlobalHandlersIntegration(opts.ExtraOptions),
		NewSystemIntegration(),
		NewRouterIntegration(RouterOptions{}),
	}
}
