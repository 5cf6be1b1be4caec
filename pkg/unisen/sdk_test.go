package unisen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestClient installs a recording client as the current client.
func initTestClient(t *testing.T, opts ClientOptions) (*Client, *recordingTransport) {
	t.Helper()
	rt := &recordingTransport{}
	opts.Transport = rt.factory
	if opts.Integrations == nil {
		opts.Integrations = []Integration{}
	}
	c, err := Init(opts)
	require.NoError(t, err)
	t.Cleanup(func() { currentClient.Store(nil) })
	return c, rt
}

func TestSDK_NoClient(t *testing.T) {
	currentClient.Store(nil)
	ctx := context.Background()

	assert.Nil(t, CurrentClient())
	assert.Empty(t, CaptureException(ctx, errBoom, nil))
	assert.Empty(t, CaptureMessage(ctx, "m", LevelInfo, nil))
	assert.Empty(t, CaptureEvent(ctx, &Event{}, nil))
	assert.Empty(t, LastEventID())
	assert.False(t, Flush(ctx))
	assert.False(t, Close(ctx))

	ConfigureScope(func(*Scope) { t.Error("ConfigureScope should not run without a client") })
	AddBreadcrumb(Breadcrumb{Message: "dropped"})
	ShowReportDialog(ReportDialogOptions{EventID: "x"})
}

func TestInit_InvalidOptions(t *testing.T) {
	currentClient.Store(nil)

	_, err := Init(ClientOptions{DSN: "not-a-dsn"})
	assert.ErrorIs(t, err, ErrInvalidDSN)
	assert.Nil(t, CurrentClient())
}

func TestSDK_CaptureDelegates(t *testing.T) {
	c, rt := initTestClient(t, ClientOptions{AttachStacktrace: true})
	ctx := context.Background()

	ConfigureScope(func(s *Scope) { s.SetTag("via", "sdk") })
	AddBreadcrumb(Breadcrumb{Message: "step"})

	id := CaptureException(ctx, errBoom, nil)
	require.NotEmpty(t, id)
	assert.Equal(t, id, LastEventID())
	assert.Equal(t, c, CurrentClient())

	msgID := CaptureMessage(ctx, "hello", LevelInfo, nil)
	assert.Equal(t, msgID, LastEventID())

	CaptureEvent(ctx, &Event{Message: "built"}, nil)

	events := rt.events()
	require.Len(t, events, 3)
	assert.Equal(t, "sdk", events[0].Tags["via"])
	assert.Equal(t, "step", events[0].Breadcrumbs[0].Message)

	st := events[1].Exception.Values[0].Stacktrace
	require.NotNil(t, st)
	innermost := st.Frames[len(st.Frames)-1].Function
	assert.True(t, strings.HasSuffix(innermost, ".TestSDK_CaptureDelegates"), "innermost frame = %q", innermost)
}

func TestSDK_FlushAndClose(t *testing.T) {
	_, rt := initTestClient(t, ClientOptions{})
	ctx := context.Background()

	assert.True(t, Flush(ctx))
	assert.True(t, Close(ctx))
	assert.True(t, rt.closed)
	assert.Nil(t, CurrentClient())
}

func TestSDK_InitReplacesClient(t *testing.T) {
	first, firstRT := initTestClient(t, ClientOptions{})
	second, _ := initTestClient(t, ClientOptions{})
	require.NotSame(t, first, second)
	assert.Same(t, second, CurrentClient())

	assert.True(t, Close(context.Background()))
	assert.Nil(t, CurrentClient())
	assert.False(t, firstRT.closed, "a replaced client is not closed")
}

func TestRecover_FallsBackToCurrentClient(t *testing.T) {
	_, rt := initTestClient(t, ClientOptions{})

	func() {
		defer Recover(context.Background(), nil)
		panic("global")
	}()

	require.Len(t, rt.events(), 1)
	assert.Equal(t, LevelFatal, rt.events()[0].Level)
}
