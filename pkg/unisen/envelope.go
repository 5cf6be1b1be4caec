// envelope.go serializes events into the newline-delimited envelope format.

package unisen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EnvelopeContentType is the Content-Type of serialized envelopes.
const EnvelopeContentType = "application/x-sentry-envelope"

// Envelope batches events for a single transport request.
type Envelope struct {
	EventID EventID
	SentAt  time.Time
	DSN     string
	Sdk     *SdkInfo
	Events  []*Event
}

// NewEnvelope wraps one event.
func NewEnvelope(event *Event, dsn string) *Envelope {
	return &Envelope{
		EventID: event.EventID,
		DSN:     dsn,
		Sdk:     event.Sdk,
		Events:  []*Event{event},
	}
}

type envelopeHeader struct {
	EventID EventID  `json:"event_id,omitempty"`
	SentAt  string   `json:"sent_at"`
	DSN     string   `json:"dsn,omitempty"`
	Sdk     *SdkInfo `json:"sdk,omitempty"`
}

type itemHeader struct {
	Type   string `json:"type"`
	Length int    `json:"length"`
}

// Category returns the rate-limit category of the envelope's items.
func (e *Envelope) Category() string {
	return "error"
}

// Serialize encodes the envelope. SentAt defaults to now.
func (e *Envelope) Serialize() ([]byte, error) {
	sentAt := e.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	var buf bytes.Buffer
	header, err := json.Marshal(envelopeHeader{
		EventID: e.EventID,
		SentAt:  sentAt.UTC().Format(time.RFC3339Nano),
		DSN:     e.DSN,
		Sdk:     e.Sdk,
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope header: %w", err)
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, event := range e.Events {
		payload, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("encode event %s: %w", event.EventID, err)
		}
		ih, err := json.Marshal(itemHeader{Type: "event", Length: len(payload)})
		if err != nil {
			return nil, fmt.Errorf("encode item header: %w", err)
		}
		buf.Write(ih)
		buf.WriteByte('\n')
		buf.Write(payload)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
