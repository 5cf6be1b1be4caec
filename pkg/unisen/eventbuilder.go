// eventbuilder.go turns arbitrary captured values into canonical events.

package unisen

// nonErrorPrefix starts the message of events built from plain objects.
const nonErrorPrefix = "Non-Error exception captured with keys: "

// serializedExtraKey holds the size-bounded copy of a captured plain object.
const serializedExtraKey = "__serialized__"

// normalizeOptions steers the primitive branch of normalize.
type normalizeOptions struct {
	attachStacktrace bool
}

// EventFromException builds an error-level event from any captured value.
// The exception mechanism defaults to handled/generic; hint.Mechanism, when
// set, is merged last.
func EventFromException(computer StackComputer, exception any, hint *EventHint) *Event {
	if hint == nil {
		hint = &EventHint{}
	}
	event := normalize(computer, exception, hint.SyntheticException, normalizeOptions{
		attachStacktrace: hint.AttachStacktrace,
	})

	addExceptionMechanism(event, &Mechanism{Type: "generic", Handled: boolPtr(true)})
	if hint.Mechanism != nil {
		addExceptionMechanism(event, hint.Mechanism)
	}
	event.Level = LevelError

	if hint.EventID != "" {
		event.EventID = hint.EventID
	}
	return event
}

// EventFromMessage builds a message event at the given level (info when
// empty). It always takes the primitive path, whatever the message holds.
func EventFromMessage(computer StackComputer, message string, level Level, hint *EventHint) *Event {
	if hint == nil {
		hint = &EventHint{}
	}
	if level == "" {
		level = LevelInfo
	}
	event := eventFromString(computer, message, hint.SyntheticException, normalizeOptions{
		attachStacktrace: hint.AttachStacktrace,
	})
	event.Level = level

	if hint.EventID != "" {
		event.EventID = hint.EventID
	}
	return event
}

// normalize is total over its input: every captured value yields a
// well-formed event.
func normalize(computer StackComputer, captured any, synthetic *SyntheticException, opts normalizeOptions) *Event {
	in := classify(captured)
	if in.kind == kindErrorEventWrapper {
		in = classify(in.wrapped)
		// A wrapper is unwrapped once; a nested wrapper is treated as an object.
		if in.kind == kindErrorEventWrapper {
			obj, _ := asPlainObject(in.raw)
			in = capturedInput{kind: kindPlainObject, object: obj, raw: in.raw}
		}
	}

	switch in.kind {
	case kindNativeException:
		return eventFromError(computer, in.err)
	case kindPlainObject:
		event := eventFromPlainObject(computer, in.object, synthetic)
		addExceptionMechanism(event, &Mechanism{Synthetic: true})
		return event
	default:
		event := eventFromString(computer, stringify(in.raw), synthetic, opts)
		addExceptionMechanism(event, &Mechanism{Synthetic: true})
		return event
	}
}

func eventFromError(computer StackComputer, err error) *Event {
	st := safeComputeStackTrace(computer, err)

	name := st.Name
	if name == "" {
		name = exceptionType(err)
	}
	value := st.Message
	if value == "" {
		value = errorMessage(err)
	}

	return &Event{
		Exception: &ExceptionList{Values: []Exception{{
			Type:       name,
			Value:      value,
			Stacktrace: stacktraceFromRaw(st.Stack),
		}}},
	}
}

// errorMessage calls err.Error, turning a panicking implementation into
// an empty message.
func errorMessage(err error) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = ""
		}
	}()
	return err.Error()
}

func eventFromPlainObject(computer StackComputer, obj map[string]any, synthetic *SyntheticException) *Event {
	message := nonErrorPrefix + extractKeysForMessage(obj, maxKeysMessageLength)

	event := &Event{
		Message: message,
		Exception: &ExceptionList{Values: []Exception{{
			Type:  "Error",
			Value: message,
		}}},
		Extra: map[string]any{
			serializedExtraKey: normalizeToSize(obj, defaultNormalizeDepth, defaultNormalizeSize),
		},
	}

	if synthetic != nil {
		st := safeComputeStackTrace(computer, synthetic)
		event.Exception.Values[0].Stacktrace = stacktraceFromRaw(st.Stack)
	}
	return event
}

func eventFromString(computer StackComputer, input string, synthetic *SyntheticException, opts normalizeOptions) *Event {
	event := &Event{Message: input}

	if opts.attachStacktrace && synthetic != nil {
		st := safeComputeStackTrace(computer, synthetic)
		event.Exception = &ExceptionList{Values: []Exception{{
			Value:      input,
			Stacktrace: stacktraceFromRaw(st.Stack),
		}}}
	}
	return event
}

// addExceptionMechanism merges m into the mechanism of the first exception
// value. Fields set in m win; the synthetic flag is sticky. Events without
// an exception value are left untouched.
func addExceptionMechanism(event *Event, m *Mechanism) {
	first := event.firstException()
	if first == nil || m == nil {
		return
	}
	if first.Mechanism == nil {
		first.Mechanism = &Mechanism{}
	}
	cur := first.Mechanism
	if m.Type != "" {
		cur.Type = m.Type
	}
	if m.Handled != nil {
		cur.Handled = boolPtr(*m.Handled)
	}
	if m.Synthetic {
		cur.Synthetic = true
	}
	if len(m.Data) > 0 {
		if cur.Data == nil {
			cur.Data = make(map[string]any, len(m.Data))
		}
		for k, v := range m.Data {
			cur.Data[k] = v
		}
	}
}
