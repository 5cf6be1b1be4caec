// input.go classifies captured values before normalization.

package unisen

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// ErrorEventWrapper is an event-style wrapper around a captured error, as
// delivered by hosts that report errors through event objects.
type ErrorEventWrapper struct {
	Error    any
	Message  string
	Filename string
	Lineno   int
	Colno    int
}

// inputKind is the tag of a classified captured value.
type inputKind int

const (
	kindPrimitive inputKind = iota
	kindNativeException
	kindPlainObject
	kindErrorEventWrapper
)

func (k inputKind) String() string {
	switch k {
	case kindNativeException:
		return "native_exception"
	case kindPlainObject:
		return "plain_object"
	case kindErrorEventWrapper:
		return "error_event_wrapper"
	default:
		return "primitive"
	}
}

// capturedInput is the tagged union produced by classify. Only the field
// matching kind is set.
type capturedInput struct {
	kind    inputKind
	err     error          // kindNativeException
	object  map[string]any // kindPlainObject
	wrapped any            // kindErrorEventWrapper
	raw     any            // original value, all kinds
}

// classify assigns the captured value to exactly one input kind, in
// wrapper > error > object > primitive precedence.
func classify(v any) capturedInput {
	in := capturedInput{raw: v}

	if isNilPointer(v) {
		in.raw = nil
		return in
	}

	switch t := v.(type) {
	case nil:
		return in
	case ErrorEventWrapper:
		if t.Error != nil {
			in.kind, in.wrapped = kindErrorEventWrapper, t.Error
			return in
		}
	case *ErrorEventWrapper:
		if t != nil && t.Error != nil {
			in.kind, in.wrapped = kindErrorEventWrapper, t.Error
			return in
		}
	case map[string]any:
		if inner, ok := t["error"]; ok && inner != nil {
			in.kind, in.wrapped = kindErrorEventWrapper, inner
			return in
		}
	}

	if err, ok := v.(error); ok {
		in.kind, in.err = kindNativeException, err
		return in
	}

	if obj, ok := asPlainObject(v); ok {
		in.kind, in.object = kindPlainObject, obj
		return in
	}

	return in
}

// asPlainObject returns the own keys and values of maps with string keys,
// structs and pointers to structs.
func asPlainObject(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		data, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, false
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil || out == nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// isNilPointer reports whether v is a typed nil pointer, such as a nil
// *MyErr stored in an error.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// stringify coerces a primitive captured value to a string.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
