// Package cxdb provides a transport that persists events to cxdb as
// SystemMessage items.
package cxdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// Option configures the cxdb transport.
type Option func(*config)

type config struct {
	orphanLabels []string
	clientTag    string
}

// WithOrphanLabels sets labels for contexts created for unlinked events.
func WithOrphanLabels(labels []string) Option {
	return func(c *config) {
		c.orphanLabels = labels
	}
}

// WithClientTag sets the client tag for orphan contexts.
func WithClientTag(tag string) Option {
	return func(c *config) {
		c.clientTag = tag
	}
}

// cxdbTransport writes events to cxdb as SystemMessage items.
type cxdbTransport struct {
	client       CXDBClient
	orphanLabels []string
	clientTag    string
}

// New creates a transport that writes to cxdb.
func New(client CXDBClient, opts ...Option) unisen.Transport {
	cfg := &config{
		orphanLabels: []string{"error", "unlinked"},
		clientTag:    "unisen",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbTransport{
		client:       client,
		orphanLabels: cfg.orphanLabels,
		clientTag:    cfg.clientTag,
	}
}

// Factory returns a unisen.TransportFactory writing to client.
func Factory(client CXDBClient, opts ...Option) unisen.TransportFactory {
	return func(unisen.TransportOptions) unisen.Transport {
		return New(client, opts...)
	}
}

// Send persists every event of the envelope. Events linked through
// unisen.WithContextID are appended to that context; others get a fresh
// orphan context.
func (t *cxdbTransport) Send(ctx context.Context, env *unisen.Envelope) error {
	var errs []error
	for _, event := range env.Events {
		if err := t.write(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", event.EventID, err))
		}
	}
	return errors.Join(errs...)
}

func (t *cxdbTransport) write(ctx context.Context, event *unisen.Event) error {
	contextID, linked := unisen.EventContextID(event)
	if !linked {
		head, err := t.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create orphan context: %w", err)
		}
		contextID = head.ContextID
	}

	item := t.buildConversationItem(event, !linked)

	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: string(event.EventID),
	}

	if _, err := t.client.AppendTurn(ctx, req); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// buildConversationItem creates a ConversationItem from an event.
func (t *cxdbTransport) buildConversationItem(event *unisen.Event, isOrphan bool) *cxdtypes.ConversationItem {
	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: event.Timestamp.UnixMilli(),
		ID:        string(event.EventID),
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   buildTitle(event),
			Content: buildDetails(event),
		},
	}

	// cxdb expects context metadata on the first turn.
	if isOrphan {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    t.orphanLabels,
			ClientTag: t.clientTag,
		}
	}
	return item
}

// buildTitle returns "type: message", truncated to 100 chars.
func buildTitle(event *unisen.Event) string {
	errorType, msg := "message", event.Message
	if event.Exception != nil && len(event.Exception.Values) > 0 {
		ex := event.Exception.Values[0]
		errorType, msg = ex.Type, ex.Value
		if errorType == "" {
			errorType = "exception"
		}
	}

	title := errorType
	if msg != "" {
		const maxMsgLen = 80
		if len(msg) > maxMsgLen {
			msg = truncate(msg, maxMsgLen) + "..."
		}
		title = errorType + ": " + msg
	}
	if len(title) > 100 {
		title = truncate(title, 97) + "..."
	}
	return title
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// buildDetails encodes the full event plus its fingerprint as JSON for
// SystemMessage.Content.
func buildDetails(event *unisen.Event) string {
	details := map[string]any{
		"event":       event,
		"fingerprint": unisen.Fingerprint(event),
	}
	jsonBytes, err := json.Marshal(details)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to encode details: %s"}`, err)
	}
	return string(jsonBytes)
}

// Flush is a no-op for the cxdb transport (writes are synchronous).
func (t *cxdbTransport) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the cxdb transport.
func (t *cxdbTransport) Close() error {
	return nil
}
