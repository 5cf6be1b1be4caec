package unisen

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
)

// recordingTransport captures envelopes for verification.
type recordingTransport struct {
	mu        sync.Mutex
	envelopes []*Envelope
	sendErr   error
	closed    bool
}

func (t *recordingTransport) Send(ctx context.Context, env *Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.envelopes = append(t.envelopes, env)
	return nil
}

func (t *recordingTransport) Flush(ctx context.Context) error {
	return nil
}

func (t *recordingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *recordingTransport) factory(TransportOptions) Transport {
	return t
}

func (t *recordingTransport) events() []*Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Event
	for _, env := range t.envelopes {
		out = append(out, env.Events...)
	}
	return out
}

// newTestClient creates a client recording into a transport. Integrations
// default to none so tests opt in explicitly.
func newTestClient(t *testing.T, opts ClientOptions) (*Client, *recordingTransport) {
	t.Helper()
	rt := &recordingTransport{}
	opts.Transport = rt.factory
	if opts.Integrations == nil {
		opts.Integrations = []Integration{}
	}
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c, rt
}

// bareHost only reports its name.
type bareHost struct {
	name string
}

func (h *bareHost) AppName() string {
	return h.name
}

// fakeHost implements every platform capability.
type fakeHost struct {
	name string

	mu                sync.Mutex
	requests          []RequestOptions
	respond           func(RequestOptions)
	errorHandlers     []func(any)
	rejectionHandlers []func(UnhandledRejection)
	notFoundHandlers  []func(PageNotFound)
	memoryHandlers    []func(MemoryWarning)

	systemInfo    SystemInfo
	systemInfoErr error
	pages         []Page
	pagesErr      error
	launch        LaunchOptions
	launchErr     error
}

func (h *fakeHost) AppName() string {
	return h.name
}

func (h *fakeHost) Request(opts RequestOptions) {
	h.mu.Lock()
	h.requests = append(h.requests, opts)
	respond := h.respond
	h.mu.Unlock()
	if respond != nil {
		respond(opts)
		return
	}
	opts.Success(RequestSuccess{StatusCode: 200})
}

func (h *fakeHost) OnError(fn func(any)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errorHandlers = append(h.errorHandlers, fn)
}

func (h *fakeHost) OnUnhandledRejection(fn func(UnhandledRejection)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejectionHandlers = append(h.rejectionHandlers, fn)
}

func (h *fakeHost) OnPageNotFound(fn func(PageNotFound)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notFoundHandlers = append(h.notFoundHandlers, fn)
}

func (h *fakeHost) OnMemoryWarning(fn func(MemoryWarning)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.memoryHandlers = append(h.memoryHandlers, fn)
}

func (h *fakeHost) GetSystemInfoSync() (SystemInfo, error) {
	return h.systemInfo, h.systemInfoErr
}

func (h *fakeHost) GetCurrentPages() ([]Page, error) {
	return h.pages, h.pagesErr
}

func (h *fakeHost) GetLaunchOptionsSync() (LaunchOptions, error) {
	return h.launch, h.launchErr
}

func (h *fakeHost) emitError(err any) {
	h.mu.Lock()
	handlers := slices.Clone(h.errorHandlers)
	h.mu.Unlock()
	for _, fn := range handlers {
		fn(err)
	}
}

// fixedComputer returns the same two-frame stack for every error.
var fixedComputer = StackComputerFunc(func(err error) StackTrace {
	return StackTrace{
		Name:    "TypeError",
		Message: err.Error(),
		Stack: []RawFrame{
			{URL: "app-service.js", Func: "inner", Line: 20, Column: 5},
			{URL: "app-service.js", Func: "outer", Line: 10, Column: 1},
		},
	}
})

var errBoom = errors.New("boom")
