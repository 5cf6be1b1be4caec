package unisen

import "testing"

func exceptionEvent(typ, value string, functions ...string) *Event {
	frames := make([]Frame, 0, len(functions))
	for i, fn := range functions {
		frames = append(frames, Frame{Filename: "app.js", Function: fn, Lineno: i + 1})
	}
	return &Event{Exception: &ExceptionList{Values: []Exception{{
		Type:       typ,
		Value:      value,
		Stacktrace: &Stacktrace{Frames: frames},
	}}}}
}

func TestFingerprint_Stability(t *testing.T) {
	event := exceptionEvent("TypeError", "x is undefined", "main", "render")

	fp1 := Fingerprint(event)
	fp2 := Fingerprint(event)

	if fp1 != fp2 {
		t.Errorf("Same event produced different fingerprints: %q vs %q", fp1, fp2)
	}
	// Should be 32 hex characters (16 bytes)
	if len(fp1) != 32 {
		t.Errorf("Fingerprint length = %d, want 32", len(fp1))
	}
}

func TestFingerprint_IgnoresLineNumbersAndIDs(t *testing.T) {
	e1 := exceptionEvent("TypeError", "order 1234 failed", "main", "pay")
	e2 := exceptionEvent("TypeError", "order 9876 failed", "main", "pay")
	e2.Exception.Values[0].Stacktrace.Frames[0].Lineno = 99
	e2.EventID = "other"

	if Fingerprint(e1) != Fingerprint(e2) {
		t.Error("events differing only in numbers should share a fingerprint")
	}
}

func TestFingerprint_DifferentTypes(t *testing.T) {
	e1 := exceptionEvent("TypeError", "boom", "main")
	e2 := exceptionEvent("RangeError", "boom", "main")

	if Fingerprint(e1) == Fingerprint(e2) {
		t.Error("different exception types should have different fingerprints")
	}
}

func TestFingerprint_OnlyTopThreeFrames(t *testing.T) {
	e1 := exceptionEvent("TypeError", "boom", "a", "b", "c", "d")
	e2 := exceptionEvent("TypeError", "boom", "z", "b", "c", "d")
	e3 := exceptionEvent("TypeError", "boom", "a", "b", "c", "e")

	if Fingerprint(e1) != Fingerprint(e2) {
		t.Error("outermost frames beyond the top three should not matter")
	}
	if Fingerprint(e1) == Fingerprint(e3) {
		t.Error("innermost frame should matter")
	}
}

func TestFingerprint_MessageEvents(t *testing.T) {
	e1 := &Event{Message: "Page not found: pages/a"}
	e2 := &Event{Message: "Page not found: pages/b"}

	if Fingerprint(e1) == Fingerprint(e2) {
		t.Error("different messages should have different fingerprints")
	}
	if Fingerprint(&Event{Message: "retry 3"}) != Fingerprint(&Event{Message: "retry 4"}) {
		t.Error("numeric noise should be normalized")
	}
}
