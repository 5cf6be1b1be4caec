// context.go provides utilities for propagating capture metadata through
// Go context.Context.

package unisen

import "context"

// Context key types (unexported to avoid collisions)
type transactionKey struct{}
type contextIDKey struct{}

// contextIDSet is used to distinguish "zero value" from "not set"
type contextIDSet struct {
	id uint64
}

// cxdbContextName is the event context carrying the linked cxdb context ID.
const cxdbContextName = "cxdb"

// WithTransaction returns a context naming the page or operation in
// progress. Events captured with it carry the name as their transaction.
func WithTransaction(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, transactionKey{}, name)
}

// TransactionFromContext extracts the transaction name from context.
// Returns empty string and false if not set or empty.
func TransactionFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(transactionKey{})
	name, ok := v.(string)
	return name, ok && name != ""
}

// WithContextID returns a context with a cxdb context ID attached.
// Events captured with it are linked to that cxdb context.
func WithContextID(ctx context.Context, contextID uint64) context.Context {
	return context.WithValue(ctx, contextIDKey{}, contextIDSet{id: contextID})
}

// ContextIDFromContext extracts the cxdb context ID from context.
// Returns 0 and false if not set.
func ContextIDFromContext(ctx context.Context) (uint64, bool) {
	v := ctx.Value(contextIDKey{})
	if v == nil {
		return 0, false
	}
	set, ok := v.(contextIDSet)
	if !ok {
		return 0, false
	}
	return set.id, true
}

// EventContextID returns the cxdb context ID linked to an event.
func EventContextID(event *Event) (uint64, bool) {
	c, ok := event.Contexts[cxdbContextName]
	if !ok {
		return 0, false
	}
	switch id := c["context_id"].(type) {
	case uint64:
		return id, true
	case float64:
		return uint64(id), true
	default:
		return 0, false
	}
}

// applyContext copies context-carried metadata onto event.
func applyContext(ctx context.Context, event *Event) {
	if ctx == nil {
		return
	}
	if name, ok := TransactionFromContext(ctx); ok && event.Transaction == "" {
		event.Transaction = name
	}
	if id, ok := ContextIDFromContext(ctx); ok {
		event.context(cxdbContextName)["context_id"] = id
	}
}
