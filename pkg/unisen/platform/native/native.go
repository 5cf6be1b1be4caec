// Package native implements unisen.Platform on the Go runtime. It lets
// services and tests drive the miniapp bindings: requests go through
// net/http and lifecycle hooks fire when the host calls the Emit methods.
package native

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
)

// Option configures a Platform.
type Option func(*Platform)

// WithAppName sets the reported application identifier (default: "unknown").
func WithAppName(name string) Option {
	return func(p *Platform) {
		if name != "" {
			p.appName = name
		}
	}
}

// WithHTTPClient sets the client used by Request.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Platform) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// WithRequestTimeout bounds each Request (default: 30s).
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Platform) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the platform logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Platform) {
		if l != nil {
			p.logger = l
		}
	}
}

// Platform is a unisen.Platform backed by the Go runtime. It implements
// every optional capability. The zero value is not usable; call New.
type Platform struct {
	appName    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger

	mu                 sync.RWMutex
	errorHandlers      []func(any)
	rejectionHandlers  []func(unisen.UnhandledRejection)
	pageNotFound       []func(unisen.PageNotFound)
	memoryWarnings     []func(unisen.MemoryWarning)
	pages              []unisen.Page
	launchOptions      unisen.LaunchOptions
	launchOptionsIsSet bool
}

// New creates a Platform.
func New(opts ...Option) *Platform {
	p := &Platform{
		appName:    unisen.AppUnknown,
		httpClient: http.DefaultClient,
		timeout:    30 * time.Second,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AppName implements unisen.Platform.
func (p *Platform) AppName() string {
	return p.appName
}

// Request performs the HTTP request on a new goroutine and reports the
// result through exactly one of opts.Success or opts.Fail.
func (p *Platform) Request(opts unisen.RequestOptions) {
	go p.do(opts)
}

func (p *Platform) do(opts unisen.RequestOptions) {
	res, err := p.roundTrip(opts)
	if err != nil {
		p.logger.Debug("request failed", "url", opts.URL, "error", err)
		if opts.Fail != nil {
			opts.Fail(err)
		}
		return
	}
	if opts.Success != nil {
		opts.Success(res)
	}
}

func (p *Platform) roundTrip(opts unisen.RequestOptions) (unisen.RequestSuccess, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, opts.URL, bytes.NewReader(opts.Data))
	if err != nil {
		return unisen.RequestSuccess{}, fmt.Errorf("build request: %w", err)
	}
	for k, v := range opts.Header {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return unisen.RequestSuccess{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	header := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		header[k] = resp.Header.Get(k)
	}
	return unisen.RequestSuccess{StatusCode: resp.StatusCode, Header: header}, nil
}

// OnError implements unisen.ErrorHook.
func (p *Platform) OnError(fn func(err any)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorHandlers = append(p.errorHandlers, fn)
}

// OnUnhandledRejection implements unisen.UnhandledRejectionHook.
func (p *Platform) OnUnhandledRejection(fn func(unisen.UnhandledRejection)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectionHandlers = append(p.rejectionHandlers, fn)
}

// OnPageNotFound implements unisen.PageNotFoundHook.
func (p *Platform) OnPageNotFound(fn func(unisen.PageNotFound)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pageNotFound = append(p.pageNotFound, fn)
}

// OnMemoryWarning implements unisen.MemoryWarningHook.
func (p *Platform) OnMemoryWarning(fn func(unisen.MemoryWarning)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.memoryWarnings = append(p.memoryWarnings, fn)
}

// EmitError delivers err to every OnError callback.
func (p *Platform) EmitError(err any) {
	p.mu.RLock()
	handlers := slices.Clone(p.errorHandlers)
	p.mu.RUnlock()
	for _, fn := range handlers {
		fn(err)
	}
}

// EmitUnhandledRejection delivers res to every OnUnhandledRejection callback.
func (p *Platform) EmitUnhandledRejection(res unisen.UnhandledRejection) {
	p.mu.RLock()
	handlers := slices.Clone(p.rejectionHandlers)
	p.mu.RUnlock()
	for _, fn := range handlers {
		fn(res)
	}
}

// EmitPageNotFound delivers res to every OnPageNotFound callback.
func (p *Platform) EmitPageNotFound(res unisen.PageNotFound) {
	p.mu.RLock()
	handlers := slices.Clone(p.pageNotFound)
	p.mu.RUnlock()
	for _, fn := range handlers {
		fn(res)
	}
}

// EmitMemoryWarning delivers res to every OnMemoryWarning callback.
func (p *Platform) EmitMemoryWarning(res unisen.MemoryWarning) {
	p.mu.RLock()
	handlers := slices.Clone(p.memoryWarnings)
	p.mu.RUnlock()
	for _, fn := range handlers {
		fn(res)
	}
}

// SetPages replaces the page stack, bottom first.
func (p *Platform) SetPages(pages ...unisen.Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = append([]unisen.Page(nil), pages...)
}

// PushPage appends a page to the top of the stack.
func (p *Platform) PushPage(page unisen.Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = append(p.pages, page)
}

// GetCurrentPages implements unisen.PageStackSource.
func (p *Platform) GetCurrentPages() ([]unisen.Page, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]unisen.Page(nil), p.pages...), nil
}

// SetLaunchOptions records how the process was started.
func (p *Platform) SetLaunchOptions(opts unisen.LaunchOptions) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.launchOptions = opts
	p.launchOptionsIsSet = true
}

// GetLaunchOptionsSync implements unisen.LaunchOptionsSource.
func (p *Platform) GetLaunchOptionsSync() (unisen.LaunchOptions, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.launchOptionsIsSet {
		return unisen.LaunchOptions{}, ErrNoLaunchOptions
	}
	return p.launchOptions, nil
}
