package noop

import (
	"context"
	"testing"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
)

func TestNoopTransport(t *testing.T) {
	tr := Factory(unisen.TransportOptions{})
	env := unisen.NewEnvelope(&unisen.Event{EventID: "evt"}, "")

	if err := tr.Send(context.Background(), env); err != nil {
		t.Errorf("Send returned %v", err)
	}
	if err := tr.Flush(context.Background()); err != nil {
		t.Errorf("Flush returned %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Close returned %v", err)
	}
	// Still discards after Close.
	if err := tr.Send(context.Background(), env); err != nil {
		t.Errorf("Send after Close returned %v", err)
	}
}
