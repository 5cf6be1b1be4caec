// Package multi provides a transport that fans out to multiple transports.
// All transports receive all envelopes; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
)

// multiTransport fans out to multiple transports.
type multiTransport struct {
	transports []unisen.Transport
}

// New creates a transport that sends to multiple transports.
// Errors are aggregated via errors.Join.
func New(transports ...unisen.Transport) unisen.Transport {
	return &multiTransport{
		transports: transports,
	}
}

// Factory combines several factories into one.
func Factory(factories ...unisen.TransportFactory) unisen.TransportFactory {
	return func(opts unisen.TransportOptions) unisen.Transport {
		transports := make([]unisen.Transport, 0, len(factories))
		for _, f := range factories {
			transports = append(transports, f(opts))
		}
		return New(transports...)
	}
}

// Send delivers the envelope to all transports, collecting any errors.
// All transports are called even if some return errors.
func (t *multiTransport) Send(ctx context.Context, env *unisen.Envelope) error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.Send(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush calls Flush on all transports, collecting any errors.
func (t *multiTransport) Flush(ctx context.Context) error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on all transports, collecting any errors.
func (t *multiTransport) Close() error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
