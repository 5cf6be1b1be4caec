// event.go defines the canonical event data structure sent by unisen.

package unisen

import (
	"maps"
	"slices"
	"time"
)

// Level indicates the severity of an event.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// EventID is the 32 character hex identifier of an event.
type EventID string

// Frame is a single stack frame of an exception, ordered oldest-first
// inside its Stacktrace.
type Frame struct {
	Filename string `json:"filename,omitempty"`
	Function string `json:"function,omitempty"`
	Lineno   int    `json:"lineno,omitempty"`
	Colno    int    `json:"colno,omitempty"`
}

// Stacktrace holds the frames of an exception value.
type Stacktrace struct {
	Frames []Frame `json:"frames"`
}

// Mechanism records how an exception was produced.
type Mechanism struct {
	// Type is the capture mechanism (generic, onerror, onunhandledrejection, panic).
	Type string `json:"type,omitempty"`

	// Handled reports whether the exception was handled by user code.
	// Uses pointer to distinguish "not set" from false.
	Handled *bool `json:"handled,omitempty"`

	// Synthetic is set when the event was built from a non-error value.
	Synthetic bool `json:"synthetic,omitempty"`

	// Data carries arbitrary mechanism metadata.
	Data map[string]any `json:"data,omitempty"`
}

// Exception is one exception value of an event.
type Exception struct {
	Type       string      `json:"type,omitempty"`
	Value      string      `json:"value"`
	Stacktrace *Stacktrace `json:"stacktrace,omitempty"`
	Mechanism  *Mechanism  `json:"mechanism,omitempty"`
}

// ExceptionList wraps the exception values of an event.
type ExceptionList struct {
	Values []Exception `json:"values"`
}

// User identifies the user affected by an event.
type User struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// Breadcrumb is a trail entry recorded before an event.
type Breadcrumb struct {
	Type      string         `json:"type,omitempty"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message,omitempty"`
	Level     Level          `json:"level,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// SdkPackage names a package that makes up the SDK.
type SdkPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// SdkInfo describes the SDK that produced an event.
type SdkInfo struct {
	Name     string       `json:"name"`
	Version  string       `json:"version"`
	Packages []SdkPackage `json:"packages,omitempty"`
}

// Context is one named entry of Event.Contexts (device, os, app, router...).
type Context = map[string]any

// Event is the canonical error event.
// Message-only events carry no Exception; exception events may carry both.
type Event struct {
	EventID     EventID            `json:"event_id,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Level       Level              `json:"level,omitempty"`
	Platform    string             `json:"platform,omitempty"`
	Logger      string             `json:"logger,omitempty"`
	Message     string             `json:"message,omitempty"`
	Exception   *ExceptionList     `json:"exception,omitempty"`
	Release     string             `json:"release,omitempty"`
	Environment string             `json:"environment,omitempty"`
	Dist        string             `json:"dist,omitempty"`
	ServerName  string             `json:"server_name,omitempty"`
	Transaction string             `json:"transaction,omitempty"`
	Tags        map[string]string  `json:"tags,omitempty"`
	Extra       map[string]any     `json:"extra,omitempty"`
	Contexts    map[string]Context `json:"contexts,omitempty"`
	User        *User              `json:"user,omitempty"`
	Breadcrumbs []Breadcrumb       `json:"breadcrumbs,omitempty"`
	Fingerprint []string           `json:"fingerprint,omitempty"`
	Sdk         *SdkInfo           `json:"sdk,omitempty"`
}

// EventHint carries capture-site information that steers event building.
type EventHint struct {
	// EventID, when set, is copied onto the built event unchanged.
	EventID EventID

	// SyntheticException supplies a call-stack snapshot for inputs that
	// carry no stack of their own.
	SyntheticException *SyntheticException

	// AttachStacktrace attaches the synthetic stack to message events.
	AttachStacktrace bool

	// Mechanism overrides the default mechanism of exception events.
	Mechanism *Mechanism

	// OriginalException is the value handed to the capture call.
	OriginalException any

	// Data is arbitrary capture-site data visible to event processors.
	Data map[string]any
}

// firstException returns the first exception value or nil.
func (e *Event) firstException() *Exception {
	if e.Exception == nil || len(e.Exception.Values) == 0 {
		return nil
	}
	return &e.Exception.Values[0]
}

// context returns the named context, creating it if needed.
func (e *Event) context(name string) Context {
	if e.Contexts == nil {
		e.Contexts = make(map[string]Context)
	}
	c, ok := e.Contexts[name]
	if !ok || c == nil {
		c = make(Context)
		e.Contexts[name] = c
	}
	return c
}

// setExtra sets an extra value, allocating the map if needed.
func (e *Event) setExtra(key string, value any) {
	if e.Extra == nil {
		e.Extra = make(map[string]any)
	}
	e.Extra[key] = value
}

// Clone returns a copy of the event that can be modified without affecting
// the original. Values stored inside Extra and context maps are shared.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	if e.Exception != nil {
		values := make([]Exception, len(e.Exception.Values))
		for i, ex := range e.Exception.Values {
			values[i] = ex.clone()
		}
		out.Exception = &ExceptionList{Values: values}
	}
	out.Tags = maps.Clone(e.Tags)
	out.Extra = maps.Clone(e.Extra)
	if e.Contexts != nil {
		out.Contexts = make(map[string]Context, len(e.Contexts))
		for name, c := range e.Contexts {
			out.Contexts[name] = maps.Clone(c)
		}
	}
	if e.User != nil {
		user := *e.User
		out.User = &user
	}
	if e.Breadcrumbs != nil {
		out.Breadcrumbs = make([]Breadcrumb, len(e.Breadcrumbs))
		for i, b := range e.Breadcrumbs {
			b.Data = maps.Clone(b.Data)
			out.Breadcrumbs[i] = b
		}
	}
	out.Fingerprint = slices.Clone(e.Fingerprint)
	if e.Sdk != nil {
		sdk := *e.Sdk
		sdk.Packages = slices.Clone(e.Sdk.Packages)
		out.Sdk = &sdk
	}
	return &out
}

func (ex Exception) clone() Exception {
	if ex.Stacktrace != nil {
		ex.Stacktrace = &Stacktrace{Frames: slices.Clone(ex.Stacktrace.Frames)}
	}
	if ex.Mechanism != nil {
		m := *ex.Mechanism
		if m.Handled != nil {
			m.Handled = boolPtr(*m.Handled)
		}
		m.Data = maps.Clone(m.Data)
		ex.Mechanism = &m
	}
	return ex
}

func boolPtr(b bool) *bool {
	return &b
}
