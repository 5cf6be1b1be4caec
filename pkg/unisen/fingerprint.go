// fingerprint.go generates stable hashes for grouping similar events.

package unisen

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Match numbers, hex ids and addresses that vary between occurrences
var variablePattern = regexp.MustCompile(`0x[0-9a-fA-F]+|\b[0-9a-f]{8,}\b|\d+`)

// Fingerprint generates a hash for grouping similar events.
// The fingerprint is based on:
//   - the first exception type and normalized value, or the normalized message
//   - the last 3 frames (function names only, innermost last)
//
// It ignores event IDs, timestamps, line numbers and numeric noise in values.
func Fingerprint(event *Event) string {
	var parts []string

	if ex := event.firstException(); ex != nil {
		parts = append(parts, ex.Type, normalizeMessage(ex.Value))
		if ex.Stacktrace != nil {
			parts = append(parts, topFunctions(ex.Stacktrace.Frames, 3)...)
		}
	} else {
		parts = append(parts, normalizeMessage(event.Message))
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}

func normalizeMessage(msg string) string {
	return variablePattern.ReplaceAllString(strings.TrimSpace(msg), "N")
}

// topFunctions returns the function names of the n innermost frames.
// Frames are oldest-first, so the innermost frames are at the end.
func topFunctions(frames []Frame, n int) []string {
	start := len(frames) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, n)
	for _, f := range frames[start:] {
		out = append(out, f.Function)
	}
	return out
}
