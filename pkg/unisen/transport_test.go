package unisen

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope(id EventID) *Envelope {
	return NewEnvelope(&Event{EventID: id, Level: LevelError, Message: "boom"}, "")
}

func TestNewTransport_SendsSerializedEnvelope(t *testing.T) {
	var body []byte
	tr := NewTransport(TransportOptions{}, func(ctx context.Context, req TransportRequest) (TransportResponse, error) {
		body = req.Body
		return TransportResponse{StatusCode: 200}, nil
	})

	require.NoError(t, tr.Send(context.Background(), testEnvelope("abc")))
	assert.Contains(t, string(body), `"event_id":"abc"`)
	assert.Contains(t, string(body), `"type":"event"`)
}

func TestNewTransport_RateLimitedSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	tr := NewTransport(TransportOptions{}, func(ctx context.Context, req TransportRequest) (TransportResponse, error) {
		calls.Add(1)
		limit := "60:error"
		return TransportResponse{StatusCode: 200, Headers: map[string]*string{HeaderRateLimits: &limit}}, nil
	})

	require.NoError(t, tr.Send(context.Background(), testEnvelope("1")))
	require.NoError(t, tr.Send(context.Background(), testEnvelope("2")))
	assert.Equal(t, int32(1), calls.Load(), "second envelope should be dropped")
}

func TestNewTransport_ServerError(t *testing.T) {
	tr := NewTransport(TransportOptions{}, func(ctx context.Context, req TransportRequest) (TransportResponse, error) {
		return TransportResponse{StatusCode: http.StatusInternalServerError}, nil
	})

	err := tr.Send(context.Background(), testEnvelope("1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNewTransport_TooManyRequestsIsNotAnError(t *testing.T) {
	tr := NewTransport(TransportOptions{}, func(ctx context.Context, req TransportRequest) (TransportResponse, error) {
		return TransportResponse{StatusCode: http.StatusTooManyRequests}, nil
	})

	assert.NoError(t, tr.Send(context.Background(), testEnvelope("1")))
}

func TestNewTransport_RequestErrorWrapped(t *testing.T) {
	tr := NewTransport(TransportOptions{}, func(ctx context.Context, req TransportRequest) (TransportResponse, error) {
		return TransportResponse{}, errBoom
	})

	err := tr.Send(context.Background(), testEnvelope("1"))
	assert.ErrorIs(t, err, errBoom)
}

func TestNewTransport_Closed(t *testing.T) {
	tr := NewTransport(TransportOptions{}, func(ctx context.Context, req TransportRequest) (TransportResponse, error) {
		return TransportResponse{StatusCode: 200}, nil
	})

	require.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Send(context.Background(), testEnvelope("1")), ErrTransportClosed)
}

func TestNewTransport_BufferFull(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	tr := NewTransport(TransportOptions{BufferSize: 1}, func(ctx context.Context, req TransportRequest) (TransportResponse, error) {
		close(started)
		<-release
		return TransportResponse{StatusCode: 200}, nil
	})

	done := make(chan error, 1)
	go func() { done <- tr.Send(context.Background(), testEnvelope("1")) }()
	<-started

	assert.ErrorIs(t, tr.Send(context.Background(), testEnvelope("2")), ErrBufferFull)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Flush(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, tr.Flush(context.Background()))
}

func TestMakeMiniappTransport(t *testing.T) {
	host := &fakeHost{name: AppWechat}
	tr := MakeMiniappTransport(host)(TransportOptions{URL: "https://host/api/1/envelope/"})

	require.NoError(t, tr.Send(context.Background(), testEnvelope("1")))

	require.Len(t, host.requests, 1)
	req := host.requests[0]
	assert.Equal(t, "https://host/api/1/envelope/", req.URL)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, EnvelopeContentType, req.Header["Content-Type"])
	assert.Contains(t, string(req.Data), `"event_id":"1"`)
}

func TestMakeMiniappTransport_CaseInsensitiveHeaders(t *testing.T) {
	host := &fakeHost{name: AppWechat}
	host.respond = func(opts RequestOptions) {
		opts.Success(RequestSuccess{StatusCode: 200, Header: map[string]string{"X-Sentry-Rate-Limits": "60:error"}})
	}
	tr := MakeMiniappTransport(host)(TransportOptions{})

	require.NoError(t, tr.Send(context.Background(), testEnvelope("1")))
	require.NoError(t, tr.Send(context.Background(), testEnvelope("2")))
	assert.Len(t, host.requests, 1)
}

func TestMakeMiniappTransport_NoRequestFunction(t *testing.T) {
	tr := MakeMiniappTransport(&bareHost{name: AppWechat})(TransportOptions{})

	assert.ErrorIs(t, tr.Send(context.Background(), testEnvelope("1")), ErrNoRequestFunction)
}

type httpRequestHost struct {
	bareHost
	calls int
}

func (h *httpRequestHost) HTTPRequest(opts RequestOptions) {
	h.calls++
	opts.Success(RequestSuccess{StatusCode: 200})
}

func TestMakeMiniappTransport_HTTPRequestFallback(t *testing.T) {
	host := &httpRequestHost{bareHost: bareHost{name: AppDingtalk}}
	tr := MakeMiniappTransport(host)(TransportOptions{})

	require.NoError(t, tr.Send(context.Background(), testEnvelope("1")))
	assert.Equal(t, 1, host.calls)
}

func TestMakeMiniappTransport_Fail(t *testing.T) {
	host := &fakeHost{name: AppWechat}
	host.respond = func(opts RequestOptions) {
		opts.Fail(errors.New("request:fail timeout"))
	}
	tr := MakeMiniappTransport(host)(TransportOptions{})

	err := tr.Send(context.Background(), testEnvelope("1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request:fail timeout")
}

func TestMakeMiniappTransport_ContextDone(t *testing.T) {
	host := &fakeHost{name: AppWechat}
	host.respond = func(opts RequestOptions) {}
	tr := MakeMiniappTransport(host)(TransportOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Send(ctx, testEnvelope("1")), context.DeadlineExceeded)
}

func TestLookupHeader(t *testing.T) {
	h := map[string]string{"Retry-After": "5", "x-sentry-rate-limits": "", "X-Sentry-Rate-Limits": "10:error"}

	if v := lookupHeader(h, HeaderRetryAfter); v == nil || *v != "5" {
		t.Errorf("retry-after = %v", v)
	}
	if v := lookupHeader(h, HeaderRateLimits); v == nil || *v != "10:error" {
		t.Errorf("rate limits = %v", v)
	}
	if v := lookupHeader(h, "missing"); v != nil {
		t.Errorf("missing = %q", *v)
	}
}
