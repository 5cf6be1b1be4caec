// scrubber.go implements fail-closed sensitive data redaction for events.

package unisen

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitiveKeys contains additional substrings marking tag/extra keys as sensitive.
	SensitiveKeys []string

	// MaxMessageSize is the maximum length for messages and exception values (default: 4096).
	MaxMessageSize int

	// MaxFrames is the maximum number of frames kept per stacktrace (default: 128).
	MaxFrames int

	// MaxExtraSize is the maximum encoded size of a single extra value (default: 16384).
	MaxExtraSize int

	// MaxTagValueSize is the maximum size per tag value (default: 200).
	MaxTagValueSize int

	// ScrubMessages enables scrubbing of messages for secrets/PII (default: true).
	ScrubMessages bool

	// FailClosed enables fail-closed behavior: on any scrub error, fully redact (default: true).
	FailClosed bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize:  4096,
		MaxFrames:       128,
		MaxExtraSize:    16384,
		MaxTagValueSize: 200,
		ScrubMessages:   true,
		FailClosed:      true,
	}
}

// Compiled regex patterns for message scrubbing (compiled once at package init)
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token|access_token|session_key)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), // JWT tokens

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // Email
	regexp.MustCompile(`\b1[3-9]\d{9}\b`),                                    // Mainland mobile numbers
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),         // Card numbers
}

// Sensitive key patterns (case-insensitive substring match)
var sensitiveKeyPatterns = []string{
	"token",
	"secret",
	"password",
	"credential",
	"auth",
	"openid",
	"unionid",
	"session_key",
}

// Path patterns to normalize in frame filenames
var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
	regexp.MustCompile(`/tmp/[^/]+/`),
}

// Scrubber redacts sensitive data from events.
type Scrubber struct {
	cfg ScrubberConfig
}

// NewScrubber creates a new scrubber with the given configuration.
// Zero size limits take the values of DefaultScrubberConfig.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	def := DefaultScrubberConfig()
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = def.MaxFrames
	}
	if cfg.MaxExtraSize <= 0 {
		cfg.MaxExtraSize = def.MaxExtraSize
	}
	if cfg.MaxTagValueSize <= 0 {
		cfg.MaxTagValueSize = def.MaxTagValueSize
	}
	return &Scrubber{cfg: cfg}
}

// ScrubEvent scrubs message, exception values, frames, tags and extra in place.
func (s *Scrubber) ScrubEvent(event *Event) {
	event.Message = s.ScrubMessage(event.Message)
	if event.Exception != nil {
		for i := range event.Exception.Values {
			ex := &event.Exception.Values[i]
			ex.Value = s.ScrubMessage(ex.Value)
			if ex.Stacktrace != nil {
				ex.Stacktrace.Frames = s.ScrubFrames(ex.Stacktrace.Frames)
			}
		}
	}
	event.Tags = s.ScrubTags(event.Tags)
	event.Extra = s.ScrubExtra(event.Extra)
	for i := range event.Breadcrumbs {
		event.Breadcrumbs[i].Message = s.ScrubMessage(event.Breadcrumbs[i].Message)
	}
}

// ScrubMessage scrubs sensitive patterns from a message.
func (s *Scrubber) ScrubMessage(msg string) string {
	if !s.cfg.ScrubMessages || msg == "" {
		return msg
	}

	if len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}

	result := msg
	for _, pattern := range messageScrubPatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// ScrubTags redacts sensitive keys from tags.
func (s *Scrubber) ScrubTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}

	result := make(map[string]string, len(tags))
	for key, value := range tags {
		if s.isSensitiveKey(key) {
			result[key] = "[REDACTED]"
			continue
		}
		if len(value) > s.cfg.MaxTagValueSize {
			value = truncateWithMarker(value, s.cfg.MaxTagValueSize)
		}
		result[key] = value
	}
	return result
}

// ScrubFrames normalizes user-specific paths and keeps at most MaxFrames
// frames, dropping the oldest.
func (s *Scrubber) ScrubFrames(frames []Frame) []Frame {
	if len(frames) == 0 {
		return frames
	}
	if s.cfg.MaxFrames > 0 && len(frames) > s.cfg.MaxFrames {
		frames = frames[len(frames)-s.cfg.MaxFrames:]
	}

	out := make([]Frame, len(frames))
	for i, f := range frames {
		for _, pattern := range pathNormalizationPatterns {
			f.Filename = pattern.ReplaceAllString(f.Filename, "/[PATH]/")
		}
		out[i] = f
	}
	return out
}

// ScrubExtra recursively scrubs extra values. A value that cannot be
// encoded is replaced by "[REDACTED:SCRUB_ERROR]" when FailClosed is set.
func (s *Scrubber) ScrubExtra(extra map[string]any) map[string]any {
	if extra == nil {
		return nil
	}

	result := make(map[string]any, len(extra))
	for key, value := range extra {
		if s.isSensitiveKey(key) {
			result[key] = "[REDACTED]"
			continue
		}
		result[key] = s.scrubExtraValue(value)
	}
	return result
}

func (s *Scrubber) scrubExtraValue(value any) any {
	data, err := json.Marshal(value)
	if err != nil {
		if s.cfg.FailClosed {
			return "[REDACTED:SCRUB_ERROR]"
		}
		return value
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		if s.cfg.FailClosed {
			return "[REDACTED:SCRUB_ERROR]"
		}
		return value
	}

	scrubbed := s.scrubJSONValue(tree)
	if s.cfg.MaxExtraSize > 0 {
		if out, err := json.Marshal(scrubbed); err == nil && len(out) > s.cfg.MaxExtraSize {
			return truncateWithMarker(string(out), s.cfg.MaxExtraSize)
		}
	}
	return scrubbed
}

// scrubJSONValue recursively scrubs a JSON value (map, array, or primitive).
func (s *Scrubber) scrubJSONValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			if s.isSensitiveKey(key) {
				result[key] = "[REDACTED]"
			} else {
				result[key] = s.scrubJSONValue(value)
			}
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, value := range v {
			result[i] = s.scrubJSONValue(value)
		}
		return result
	case string:
		return s.ScrubMessage(v)
	default:
		return v
	}
}

// isSensitiveKey checks if a key matches sensitive patterns.
func (s *Scrubber) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	for _, pattern := range s.cfg.SensitiveKeys {
		if pattern != "" && strings.Contains(keyLower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// truncateWithMarker truncates a string and adds a truncation marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return truncateBytes(s, maxLen-len(marker)) + marker
}
