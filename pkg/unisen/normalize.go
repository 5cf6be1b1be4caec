// normalize.go bounds the size of arbitrary values attached to events.

package unisen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxKeysMessageLength  = 40
	defaultNormalizeDepth = 3
	defaultNormalizeSize  = 100 * 1024
)

// extractKeysForMessage lists the sorted keys of obj joined by ", ",
// dropping trailing keys until the list fits in maxLength.
func extractKeysForMessage(obj map[string]any, maxLength int) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		return "[object has no keys]"
	}
	if len(keys[0]) >= maxLength {
		return truncateWithEllipsis(keys[0], maxLength)
	}

	for n := len(keys); n > 0; n-- {
		serialized := strings.Join(keys[:n], ", ")
		if len(serialized) > maxLength {
			continue
		}
		if n == len(keys) {
			return serialized
		}
		return truncateWithEllipsis(serialized, maxLength)
	}
	return ""
}

func truncateWithEllipsis(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return truncateBytes(s, maxLength) + "..."
}

// truncateBytes cuts s to at most n bytes without splitting a UTF-8
// sequence.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// normalizeToSize converts v to a JSON-compatible tree limited to depth
// levels, reducing the depth until the encoding fits in maxSize bytes.
func normalizeToSize(v any, depth, maxSize int) any {
	normalized := normalizeValue(v, depth)
	for depth > 0 {
		data, err := json.Marshal(normalized)
		if err == nil && len(data) <= maxSize {
			return normalized
		}
		depth--
		normalized = normalizeValue(v, depth)
	}
	return normalized
}

// normalizeValue round-trips v through JSON and replaces containers below
// depth with "[Object]" / "[Array]" markers.
func normalizeValue(v any, depth int) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("**non-serializable** (%v)", err)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return string(data)
	}
	return limitDepth(tree, depth)
}

func limitDepth(v any, depth int) any {
	switch t := v.(type) {
	case map[string]any:
		if depth <= 0 {
			return "[Object]"
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = limitDepth(val, depth-1)
		}
		return out
	case []any:
		if depth <= 0 {
			return "[Array]"
		}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = limitDepth(val, depth-1)
		}
		return out
	default:
		return v
	}
}
