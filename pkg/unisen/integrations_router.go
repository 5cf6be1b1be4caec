// integrations_router.go records the current page stack on events.

package unisen

import (
	"context"
	"encoding/json"
)

// RouterIntegrationName is the Name of RouterIntegration.
const RouterIntegrationName = "Router"

// RouterOptions configures RouterIntegration.
type RouterOptions struct {
	// Disable turns the integration into a pass-through.
	Disable bool `yaml:"disable"`
}

// RouterIntegration records the platform page stack in the "router" context.
type RouterIntegration struct {
	opts     RouterOptions
	platform Platform
}

// NewRouterIntegration creates the integration.
func NewRouterIntegration(opts RouterOptions) *RouterIntegration {
	return &RouterIntegration{opts: opts}
}

// Name implements Integration.
func (r *RouterIntegration) Name() string {
	return RouterIntegrationName
}

// SetupOnce implements Integration.
func (r *RouterIntegration) SetupOnce(client *Client) {
	r.platform = client.Platform()
}

// ProcessEvent implements EventProcessor.
func (r *RouterIntegration) ProcessEvent(ctx context.Context, event *Event, hint *EventHint) *Event {
	if r.opts.Disable {
		return event
	}
	source, ok := r.platform.(PageStackSource)
	if !ok {
		return event
	}
	pages, err := source.GetCurrentPages()
	if err != nil {
		return event
	}

	routes := make([]string, 0, len(pages))
	for _, page := range pages {
		b, err := json.Marshal(page)
		if err != nil {
			return event
		}
		routes = append(routes, string(b))
	}

	var current any
	if len(pages) > 0 {
		last := pages[len(pages)-1]
		current = map[string]any{"route": last.Route, "options": last.Options}
	}

	router := event.context("router")
	router["routes"] = routes
	router["current"] = current
	return event
}
