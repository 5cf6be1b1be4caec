// Package noop provides a transport that discards all envelopes.
package noop

import (
	"context"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
)

type noopTransport struct{}

// New creates a transport that discards all envelopes.
func New() unisen.Transport {
	return &noopTransport{}
}

// Factory is a unisen.TransportFactory returning a noop transport.
func Factory(unisen.TransportOptions) unisen.Transport {
	return New()
}

func (t *noopTransport) Send(ctx context.Context, env *unisen.Envelope) error {
	return nil
}

func (t *noopTransport) Flush(ctx context.Context) error {
	return nil
}

func (t *noopTransport) Close() error {
	return nil
}
