package stderr

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
)

func TestStderrTransport_ImplementsTransportInterface(t *testing.T) {
	var _ unisen.Transport = New()
}

func exceptionEvent() *unisen.Event {
	return &unisen.Event{
		EventID:     "evt-123",
		Timestamp:   time.Date(2025, 1, 26, 15, 4, 5, 0, time.UTC),
		Level:       unisen.LevelError,
		Transaction: "pages/index/index",
		Tags:        map[string]string{"page": "home"},
		Contexts: map[string]unisen.Context{
			"app":  {"app_name": "wechat"},
			"cxdb": {"context_id": uint64(42)},
		},
		Exception: &unisen.ExceptionList{Values: []unisen.Exception{{
			Type:  "TypeError",
			Value: "cannot read property 'x' of undefined",
			Stacktrace: &unisen.Stacktrace{Frames: []unisen.Frame{
				{Filename: "app-service.js", Function: "outer", Lineno: 10},
				{Filename: "app-service.js", Function: "inner", Lineno: 20},
			}},
		}}},
	}
}

func send(t *testing.T, tr unisen.Transport, event *unisen.Event) {
	t.Helper()
	if err := tr.Send(context.Background(), unisen.NewEnvelope(event, "")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
}

func TestStderrTransport_Send_FormatsOutput(t *testing.T) {
	var buf bytes.Buffer
	tr := New(WithWriter(&buf))

	send(t, tr, exceptionEvent())
	output := buf.String()

	for _, want := range []string{
		"[UNISEN] 2025-01-26T15:04:05Z ERROR TypeError",
		"on pages/index/index",
		"(app: wechat)",
		"Message: cannot read property 'x' of undefined",
		"Fingerprint: ",
		"Context: 42",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %q, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Stack trace") {
		t.Error("Non-verbose output should not include the stack trace")
	}
}

func TestStderrTransport_Verbose(t *testing.T) {
	var buf bytes.Buffer
	tr := New(WithWriter(&buf), WithVerbose())

	send(t, tr, exceptionEvent())
	output := buf.String()

	if !strings.Contains(output, "page=home") {
		t.Errorf("Verbose output should list tags, got:\n%s", output)
	}
	inner := strings.Index(output, "inner")
	outer := strings.Index(output, "outer")
	if inner < 0 || outer < 0 || inner > outer {
		t.Errorf("Stack trace should list the innermost frame first, got:\n%s", output)
	}
}

func TestStderrTransport_MessageEvent(t *testing.T) {
	var buf bytes.Buffer
	tr := New(WithWriter(&buf))

	send(t, tr, &unisen.Event{Level: unisen.LevelWarning, Message: "Page not found: pages/x"})
	output := buf.String()

	if !strings.Contains(output, "WARNING message") {
		t.Errorf("Output should name a message event, got:\n%s", output)
	}
	if !strings.Contains(output, "Message: Page not found: pages/x") {
		t.Errorf("Output should contain the message, got:\n%s", output)
	}
}

func TestStderrTransport_FlushClose(t *testing.T) {
	tr := New()
	if err := tr.Flush(context.Background()); err != nil {
		t.Errorf("Flush returned %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Close returned %v", err)
	}
}
