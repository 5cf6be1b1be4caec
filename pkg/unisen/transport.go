// transport.go defines the Transport interface, the generic request-driven
// transport and the miniapp transport built on the platform request API.

package unisen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/strongdm/miniapp-observe/pkg/unisen/metrics"
)

const defaultBufferSize = 64

var (
	// ErrNoRequestFunction is returned when the platform exposes neither
	// Request nor HTTPRequest.
	ErrNoRequestFunction = errors.New("no request function available")

	// ErrBufferFull is returned when too many sends are in flight.
	ErrBufferFull = errors.New("transport buffer full")

	// ErrTransportClosed is returned by Send after Close.
	ErrTransportClosed = errors.New("transport is closed")
)

// Transport delivers envelopes.
// Implementations must be safe for concurrent use.
type Transport interface {
	// Send delivers one envelope. Blocks until the request completes.
	Send(ctx context.Context, env *Envelope) error

	// Flush waits until in-flight sends complete or ctx is done.
	Flush(ctx context.Context) error

	// Close releases resources. After Close, Send returns an error.
	Close() error
}

// TransportOptions configures transports created by a TransportFactory.
type TransportOptions struct {
	// URL is the envelope endpoint.
	URL string

	// BufferSize bounds concurrent in-flight sends (default: 64).
	BufferSize int

	Logger *slog.Logger
}

// TransportFactory creates the client's transport at client construction.
type TransportFactory func(opts TransportOptions) Transport

// TransportRequest is one serialized envelope.
type TransportRequest struct {
	Body []byte
}

// TransportResponse is what a RequestFunc reports back. Headers only holds
// the rate-limit headers under lowercase keys; a nil value means the header
// was absent.
type TransportResponse struct {
	StatusCode int
	Headers    map[string]*string
}

func (r TransportResponse) header(name string) string {
	if v := r.Headers[name]; v != nil {
		return *v
	}
	return ""
}

// RequestFunc performs one outbound request.
type RequestFunc func(ctx context.Context, req TransportRequest) (TransportResponse, error)

// requestTransport serializes envelopes, honours rate limits and delegates
// the request itself to a RequestFunc.
type requestTransport struct {
	makeRequest RequestFunc
	limits      *rateLimits
	inflight    chan struct{}
	closed      atomic.Bool
	logger      *slog.Logger
	now         func() time.Time
}

// NewTransport wraps makeRequest with envelope serialization, rate-limit
// tracking and bounded concurrency.
func NewTransport(opts TransportOptions, makeRequest RequestFunc) Transport {
	size := opts.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	return &requestTransport{
		makeRequest: makeRequest,
		limits:      newRateLimits(),
		inflight:    make(chan struct{}, size),
		logger:      logger,
		now:         time.Now,
	}
}

// Send delivers env unless its category is rate limited. Rate-limited
// envelopes are dropped silently.
func (t *requestTransport) Send(ctx context.Context, env *Envelope) error {
	if t.closed.Load() {
		return ErrTransportClosed
	}

	if t.limits.isLimited(env.Category(), t.now()) {
		metrics.EventsDropped.WithLabelValues(metrics.ReasonRateLimited).Inc()
		t.logger.Debug("envelope dropped due to rate limiting", "event_id", env.EventID)
		return nil
	}

	select {
	case t.inflight <- struct{}{}:
	default:
		metrics.EventsDropped.WithLabelValues(metrics.ReasonBufferFull).Inc()
		return ErrBufferFull
	}
	defer func() { <-t.inflight }()

	body, err := env.Serialize()
	if err != nil {
		return fmt.Errorf("serialize envelope: %w", err)
	}

	start := time.Now()
	resp, err := t.makeRequest(ctx, TransportRequest{Body: body})
	metrics.RequestDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.EventsDropped.WithLabelValues(metrics.ReasonNetworkError).Inc()
		return fmt.Errorf("send envelope %s: %w", env.EventID, err)
	}

	t.limits.update(resp, t.now())
	metrics.EnvelopesSent.WithLabelValues(metrics.StatusClass(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		t.logger.Warn("envelope rate limited by server", "event_id", env.EventID)
	case resp.StatusCode >= 400:
		return fmt.Errorf("send envelope %s: unexpected status %d", env.EventID, resp.StatusCode)
	}
	return nil
}

// Flush waits until no sends are in flight.
func (t *requestTransport) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if len(t.inflight) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close marks the transport closed.
func (t *requestTransport) Close() error {
	t.closed.Store(true)
	return nil
}

// MakeMiniappTransport returns a factory for transports that send through
// the platform request API.
func MakeMiniappTransport(platform Platform) TransportFactory {
	return func(opts TransportOptions) Transport {
		return NewTransport(opts, miniappRequestFunc(platform, opts.URL))
	}
}

// miniappRequestFunc adapts the callback-style platform request into a
// blocking RequestFunc. The platform is consulted on every call so a
// missing primitive surfaces as an error, not at construction.
func miniappRequestFunc(platform Platform, url string) RequestFunc {
	return func(ctx context.Context, req TransportRequest) (TransportResponse, error) {
		request := requestFunction(platform)
		if request == nil {
			return TransportResponse{}, ErrNoRequestFunction
		}

		type result struct {
			resp TransportResponse
			err  error
		}
		done := make(chan result, 1)
		deliver := func(r result) {
			select {
			case done <- r:
			default:
			}
		}

		request(RequestOptions{
			URL:    url,
			Method: http.MethodPost,
			Data:   req.Body,
			Header: map[string]string{
				"Content-Type": EnvelopeContentType,
			},
			Success: func(res RequestSuccess) {
				deliver(result{resp: responseFromPlatform(res)})
			},
			Fail: func(err error) {
				if err == nil {
					err = io.ErrUnexpectedEOF
				}
				deliver(result{err: err})
			},
		})

		select {
		case r := <-done:
			return r.resp, r.err
		case <-ctx.Done():
			return TransportResponse{}, ctx.Err()
		}
	}
}

// requestFunction prefers Request and falls back to HTTPRequest.
func requestFunction(platform Platform) func(RequestOptions) {
	switch p := platform.(type) {
	case Requester:
		return p.Request
	case HTTPRequester:
		return p.HTTPRequest
	default:
		return nil
	}
}

// responseFromPlatform exposes the rate-limit headers under lowercase keys,
// with nil for absent headers.
func responseFromPlatform(res RequestSuccess) TransportResponse {
	return TransportResponse{
		StatusCode: res.StatusCode,
		Headers: map[string]*string{
			HeaderRateLimits: lookupHeader(res.Header, HeaderRateLimits),
			HeaderRetryAfter: lookupHeader(res.Header, HeaderRetryAfter),
		},
	}
}

func lookupHeader(h map[string]string, name string) *string {
	if v, ok := h[name]; ok && v != "" {
		return &v
	}
	for k, v := range h {
		if v != "" && strings.EqualFold(k, name) {
			return &v
		}
	}
	return nil
}
