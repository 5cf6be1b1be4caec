// Package async provides a transport wrapper with a bounded queue for
// high-throughput scenarios. Envelopes are queued and sent in the
// background; the oldest envelopes are dropped when the queue is full.
package async

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
	"github.com/strongdm/miniapp-observe/pkg/unisen/metrics"
)

// Option configures the async transport.
type Option func(*config)

type config struct {
	queueSize int
	onDropped func(count int)
	limiter   *rate.Limiter
}

// WithQueueSize sets the maximum number of queued envelopes (default: 1000).
func WithQueueSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithOnDropped sets a callback invoked when envelopes are dropped due to
// queue overflow.
func WithOnDropped(fn func(count int)) Option {
	return func(c *config) {
		c.onDropped = fn
	}
}

// WithRateLimit caps delivery to eventsPerSecond with the given burst.
// Queued envelopes wait for a token; they are not dropped.
func WithRateLimit(eventsPerSecond float64, burst int) Option {
	return func(c *config) {
		if eventsPerSecond > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(eventsPerSecond), burst)
		}
	}
}

// asyncTransport wraps a transport with a bounded queue.
type asyncTransport struct {
	inner     unisen.Transport
	queue     chan *unisen.Envelope
	done      chan struct{}
	closeOnce sync.Once
	closeMu   sync.Mutex
	closed    bool
	wg        sync.WaitGroup
	pending   atomic.Int64
	onDropped func(count int)
	limiter   *rate.Limiter
}

// New wraps a transport with a bounded queue for async sends.
// Send returns immediately; envelopes are delivered in the background.
// When the queue is full, the oldest envelope is dropped to make room.
func New(inner unisen.Transport, opts ...Option) unisen.Transport {
	cfg := &config{queueSize: 1000}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &asyncTransport{
		inner:     inner,
		queue:     make(chan *unisen.Envelope, cfg.queueSize),
		done:      make(chan struct{}),
		onDropped: cfg.onDropped,
		limiter:   cfg.limiter,
	}

	t.wg.Add(1)
	go t.processLoop()

	return t
}

// Factory adapts New to a unisen.TransportFactory.
func Factory(inner unisen.TransportFactory, opts ...Option) unisen.TransportFactory {
	return func(topts unisen.TransportOptions) unisen.Transport {
		return New(inner(topts), opts...)
	}
}

// processLoop drains the queue and sends to the inner transport.
func (t *asyncTransport) processLoop() {
	defer t.wg.Done()
	for {
		select {
		case env, ok := <-t.queue:
			if !ok {
				return
			}
			t.deliver(env, true)
		case <-t.done:
			// Drain remaining envelopes without waiting for tokens
			for {
				select {
				case env, ok := <-t.queue:
					if !ok {
						return
					}
					t.deliver(env, false)
				default:
					return
				}
			}
		}
	}
}

func (t *asyncTransport) deliver(env *unisen.Envelope, limited bool) {
	defer t.pending.Add(-1)
	metrics.QueueDepth.Dec()

	if limited && t.limiter != nil {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-t.done:
				cancel()
			case <-ctx.Done():
			}
		}()
		_ = t.limiter.Wait(ctx)
		cancel()
	}
	// Ignore errors from inner transport (fire and forget)
	_ = t.inner.Send(context.Background(), env)
}

// Send enqueues an envelope for async delivery.
// Returns immediately. If the queue is full, drops the oldest envelope.
func (t *asyncTransport) Send(ctx context.Context, env *unisen.Envelope) error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return unisen.ErrTransportClosed
	}

	t.pending.Add(1)
	metrics.QueueDepth.Inc()
	select {
	case t.queue <- env:
	default:
		t.dropOldestAndEnqueue(env)
	}
	return nil
}

// dropOldestAndEnqueue drops the oldest envelope and enqueues the new one.
func (t *asyncTransport) dropOldestAndEnqueue(env *unisen.Envelope) {
	select {
	case <-t.queue:
		t.dropped()
	default:
		// Queue was emptied by processor, try again
	}

	select {
	case t.queue <- env:
	default:
		// Still full, just drop the new envelope
		t.dropped()
	}
}

func (t *asyncTransport) dropped() {
	t.pending.Add(-1)
	metrics.QueueDepth.Dec()
	metrics.EventsDropped.WithLabelValues(metrics.ReasonQueueFull).Inc()
	if t.onDropped != nil {
		t.onDropped(1)
	}
}

// Flush blocks until all queued envelopes are sent, then flushes the inner
// transport.
func (t *asyncTransport) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for t.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return t.inner.Flush(ctx)
}

// Close stops the processor after draining the queue and closes the inner
// transport.
func (t *asyncTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeMu.Lock()
		t.closed = true
		t.closeMu.Unlock()

		close(t.done)
		t.wg.Wait()
		close(t.queue)
	})

	return t.inner.Close()
}
