package cxdb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
)

// mockCXDBClient is a test double for the cxdb client.
type mockCXDBClient struct {
	mu             sync.Mutex
	createContexts []uint64 // baseTurnIDs passed to CreateContext
	appendRequests []*cxdbclient.AppendRequest
	nextContextID  uint64
	createErr      error
	appendErr      error
}

func (m *mockCXDBClient) CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createContexts = append(m.createContexts, baseTurnID)
	m.nextContextID++
	return &cxdbclient.ContextHead{
		ContextID:  m.nextContextID,
		HeadTurnID: 0,
		HeadDepth:  0,
	}, nil
}

func (m *mockCXDBClient) AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	m.appendRequests = append(m.appendRequests, req)
	return &cxdbclient.AppendResult{
		ContextID: req.ContextID,
		TurnID:    1,
		Depth:     1,
	}, nil
}

func (m *mockCXDBClient) getAppendRequests() []*cxdbclient.AppendRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*cxdbclient.AppendRequest, len(m.appendRequests))
	copy(result, m.appendRequests)
	return result
}

func (m *mockCXDBClient) getCreateContextCalls() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]uint64, len(m.createContexts))
	copy(result, m.createContexts)
	return result
}

func decodeConversationItem(t *testing.T, payload []byte) cxdtypes.ConversationItem {
	t.Helper()
	var item cxdtypes.ConversationItem
	if err := cxdbclient.DecodeMsgpackInto(payload, &item); err != nil {
		t.Fatalf("DecodeMsgpackInto failed: %v", err)
	}
	return item
}

func decodeDetailsJSON(t *testing.T, content string) map[string]any {
	t.Helper()
	var details map[string]any
	if err := json.Unmarshal([]byte(content), &details); err != nil {
		t.Fatalf("details JSON unmarshal failed: %v", err)
	}
	return details
}

func testEvent() *unisen.Event {
	return &unisen.Event{
		EventID:   "evt-123",
		Timestamp: time.Date(2025, 1, 26, 12, 0, 0, 0, time.UTC),
		Level:     unisen.LevelError,
		Exception: &unisen.ExceptionList{Values: []unisen.Exception{{
			Type:  "TypeError",
			Value: "test error",
		}}},
	}
}

func linked(event *unisen.Event, contextID uint64) *unisen.Event {
	event.Contexts = map[string]unisen.Context{"cxdb": {"context_id": contextID}}
	return event
}

func send(tr unisen.Transport, events ...*unisen.Event) error {
	return tr.Send(context.Background(), &unisen.Envelope{Events: events})
}

func TestCXDBTransport_ImplementsTransportInterface(t *testing.T) {
	var _ unisen.Transport = New(&mockCXDBClient{})
}

func TestCXDBTransport_Send_WithContextID_AppendsTurn(t *testing.T) {
	client := &mockCXDBClient{}
	tr := New(client)

	if err := send(tr, linked(testEvent(), 12345)); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if calls := client.getCreateContextCalls(); len(calls) != 0 {
		t.Errorf("Should not create context for a linked event, got %d create calls", len(calls))
	}

	reqs := client.getAppendRequests()
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 append request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.ContextID != 12345 {
		t.Errorf("ContextID = %d, want 12345", req.ContextID)
	}
	if req.TypeID != cxdtypes.TypeIDConversationItem {
		t.Errorf("TypeID = %q, want %q", req.TypeID, cxdtypes.TypeIDConversationItem)
	}
	if req.IdempotencyKey != "evt-123" {
		t.Errorf("IdempotencyKey = %q, want evt-123", req.IdempotencyKey)
	}

	item := decodeConversationItem(t, req.Payload)
	if item.ItemType != cxdtypes.ItemTypeSystem {
		t.Errorf("ItemType = %q, want system", item.ItemType)
	}
	if item.System == nil || item.System.Kind != cxdtypes.SystemKindError {
		t.Fatalf("System = %+v, want error kind", item.System)
	}
	if item.System.Title != "TypeError: test error" {
		t.Errorf("Title = %q", item.System.Title)
	}
	if item.ContextMetadata != nil {
		t.Error("Linked events should not carry context metadata")
	}

	details := decodeDetailsJSON(t, item.System.Content)
	if details["fingerprint"] != unisen.Fingerprint(testEvent()) {
		t.Errorf("fingerprint = %v", details["fingerprint"])
	}
	event := details["event"].(map[string]any)
	if event["event_id"] != "evt-123" {
		t.Errorf("event_id = %v", event["event_id"])
	}
}

func TestCXDBTransport_Send_WithoutContextID_CreatesOrphan(t *testing.T) {
	client := &mockCXDBClient{}
	tr := New(client, WithOrphanLabels([]string{"miniapp"}), WithClientTag("wechat-app"))

	if err := send(tr, testEvent()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	calls := client.getCreateContextCalls()
	if len(calls) != 1 || calls[0] != 0 {
		t.Fatalf("CreateContext calls = %v, want [0]", calls)
	}

	reqs := client.getAppendRequests()
	if len(reqs) != 1 || reqs[0].ContextID != 1 {
		t.Fatalf("append requests = %+v", reqs)
	}
	item := decodeConversationItem(t, reqs[0].Payload)
	if item.ContextMetadata == nil {
		t.Fatal("Orphan events should carry context metadata")
	}
	if item.ContextMetadata.ClientTag != "wechat-app" {
		t.Errorf("ClientTag = %q", item.ContextMetadata.ClientTag)
	}
	if len(item.ContextMetadata.Labels) != 1 || item.ContextMetadata.Labels[0] != "miniapp" {
		t.Errorf("Labels = %v", item.ContextMetadata.Labels)
	}
}

func TestCXDBTransport_Send_Errors(t *testing.T) {
	errCreate := errors.New("create failed")
	tr := New(&mockCXDBClient{createErr: errCreate})
	if err := send(tr, testEvent()); !errors.Is(err, errCreate) {
		t.Errorf("Send error = %v, want %v", err, errCreate)
	}

	errAppend := errors.New("append failed")
	client := &mockCXDBClient{appendErr: errAppend}
	tr = New(client)
	err := send(tr, linked(testEvent(), 1), linked(testEvent(), 2))
	if !errors.Is(err, errAppend) {
		t.Errorf("Send error = %v, want %v", err, errAppend)
	}
	if !strings.Contains(err.Error(), "evt-123") {
		t.Errorf("Send error should name the event, got %v", err)
	}
}

func TestBuildTitle(t *testing.T) {
	long := strings.Repeat("m", 120)
	tests := []struct {
		name  string
		event *unisen.Event
		want  string
	}{
		{"message", &unisen.Event{Message: "hello"}, "message: hello"},
		{"untyped exception", &unisen.Event{Exception: &unisen.ExceptionList{Values: []unisen.Exception{{Value: "v"}}}}, "exception: v"},
		{"empty", &unisen.Event{}, "message"},
		{"long", &unisen.Event{Message: long}, "message: " + strings.Repeat("m", 80) + "..."},
		{"multibyte", &unisen.Event{Message: strings.Repeat("я", 41)}, "message: " + strings.Repeat("я", 40) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildTitle(tt.event); got != tt.want {
				t.Errorf("buildTitle = %q, want %q", got, tt.want)
			}
		})
	}
}
