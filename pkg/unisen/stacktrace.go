// stacktrace.go computes raw stack traces and converts them to event frames.

package unisen

import (
	"errors"
	"reflect"
	"runtime"

	pkgerrors "github.com/pkg/errors"
)

// maxStackDepth bounds the number of program counters captured per stack.
const maxStackDepth = 64

// RawFrame is a frame as produced by a StackComputer.
type RawFrame struct {
	URL    string
	Func   string
	Line   int
	Column int
}

// StackTrace is the output of a StackComputer. Stack is ordered
// newest-call-site first.
type StackTrace struct {
	Name    string
	Message string
	Stack   []RawFrame
}

// StackComputer extracts a stack trace from an error.
// Implementations should not panic; if they do, the panic is treated as
// "no stack available".
type StackComputer interface {
	ComputeStackTrace(err error) StackTrace
}

// StackComputerFunc adapts a function to the StackComputer interface.
type StackComputerFunc func(err error) StackTrace

// ComputeStackTrace calls f(err).
func (f StackComputerFunc) ComputeStackTrace(err error) StackTrace {
	return f(err)
}

// DefaultStackComputer understands errors carrying their own raw stack
// (SyntheticException) and errors created by github.com/pkg/errors.
var DefaultStackComputer StackComputer = StackComputerFunc(ComputeStackTrace)

// rawStacker is implemented by errors that captured a RawFrame stack.
type rawStacker interface {
	RawStack() []RawFrame
}

// pkgStackTracer is implemented by github.com/pkg/errors values.
type pkgStackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// ComputeStackTrace returns the name, message and stack of err. The first
// stack found in the wrap chain wins.
func ComputeStackTrace(err error) StackTrace {
	if err == nil {
		return StackTrace{}
	}
	st := StackTrace{
		Name:    exceptionType(err),
		Message: err.Error(),
	}

	var rs rawStacker
	if errors.As(err, &rs) {
		st.Stack = rs.RawStack()
		return st
	}

	var pt pkgStackTracer
	if errors.As(err, &pt) {
		st.Stack = framesFromPkgErrors(pt.StackTrace())
	}
	return st
}

// SyntheticException is an error manufactured at a capture site purely to
// snapshot the call stack.
type SyntheticException struct {
	frames []RawFrame
}

// NewSyntheticException captures the stack of its caller. skip omits
// additional frames above the caller.
func NewSyntheticException(skip int) *SyntheticException {
	return &SyntheticException{frames: captureRawStack(skip + 1)}
}

func (e *SyntheticException) Error() string {
	return "synthetic exception"
}

// RawStack returns the captured frames, newest first.
func (e *SyntheticException) RawStack() []RawFrame {
	return e.frames
}

// captureRawStack returns the stack of the caller of captureRawStack,
// newest first, skipping skip additional frames.
func captureRawStack(skip int) []RawFrame {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])

	var out []RawFrame
	for {
		f, more := frames.Next()
		if f.Function != "runtime.goexit" {
			out = append(out, RawFrame{URL: f.File, Func: f.Function, Line: f.Line})
		}
		if !more {
			break
		}
	}
	return out
}

func framesFromPkgErrors(st pkgerrors.StackTrace) []RawFrame {
	out := make([]RawFrame, 0, len(st))
	for _, f := range st {
		pc := uintptr(f) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line := fn.FileLine(pc)
		out = append(out, RawFrame{URL: file, Func: fn.Name(), Line: line})
	}
	return out
}

// safeComputeStackTrace never panics; a failing computer yields no stack.
func safeComputeStackTrace(computer StackComputer, err error) (st StackTrace) {
	defer func() {
		if r := recover(); r != nil {
			st = StackTrace{}
		}
	}()
	if computer == nil {
		computer = DefaultStackComputer
	}
	return computer.ComputeStackTrace(err)
}

// prepareFrames maps raw frames to event frames and reverses them to
// oldest-first order. An empty stack yields nil.
func prepareFrames(stack []RawFrame) []Frame {
	if len(stack) == 0 {
		return nil
	}
	frames := make([]Frame, len(stack))
	for i, raw := range stack {
		fn := raw.Func
		if fn == "" {
			fn = "?"
		}
		frames[len(stack)-1-i] = Frame{
			Filename: raw.URL,
			Function: fn,
			Lineno:   raw.Line,
			Colno:    raw.Column,
		}
	}
	return frames
}

// stacktraceFromRaw returns nil for an empty stack so that "no trace" stays
// distinguishable from "trace with zero frames".
func stacktraceFromRaw(stack []RawFrame) *Stacktrace {
	frames := prepareFrames(stack)
	if len(frames) == 0 {
		return nil
	}
	return &Stacktrace{Frames: frames}
}

// exceptionType names the innermost error in the single-unwrap chain.
func exceptionType(err error) string {
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	return reflect.TypeOf(root).String()
}
