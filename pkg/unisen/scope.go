// scope.go holds contextual data applied to every event sent by a client.

package unisen

import (
	"sync"
	"time"
)

// defaultMaxBreadcrumbs is used when ClientOptions.MaxBreadcrumbs is zero.
const defaultMaxBreadcrumbs = 100

// Scope carries tags, extra data, contexts, user and breadcrumbs.
// It is safe for concurrent use.
type Scope struct {
	mu          sync.RWMutex
	tags        map[string]string
	extra       map[string]any
	contexts    map[string]Context
	user        *User
	level       Level
	fingerprint []string
	breadcrumbs breadcrumbBuffer
}

// NewScope creates an empty scope keeping at most maxBreadcrumbs entries.
func NewScope(maxBreadcrumbs int) *Scope {
	if maxBreadcrumbs <= 0 {
		maxBreadcrumbs = defaultMaxBreadcrumbs
	}
	return &Scope{
		tags:        make(map[string]string),
		extra:       make(map[string]any),
		contexts:    make(map[string]Context),
		breadcrumbs: breadcrumbBuffer{maxSize: maxBreadcrumbs},
	}
}

// SetTag sets a tag.
func (s *Scope) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[key] = value
}

// SetTags sets several tags at once.
func (s *Scope) SetTags(tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range tags {
		s.tags[k] = v
	}
}

// SetExtra sets an extra value.
func (s *Scope) SetExtra(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra[key] = value
}

// SetContext sets a named context. A nil context removes it.
func (s *Scope) SetContext(name string, ctx Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx == nil {
		delete(s.contexts, name)
		return
	}
	s.contexts[name] = ctx
}

// SetUser sets the user. A nil user clears it.
func (s *Scope) SetUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// SetLevel forces the level of every event.
func (s *Scope) SetLevel(level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

// SetFingerprint overrides event grouping.
func (s *Scope) SetFingerprint(fingerprint []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprint = fingerprint
}

// AddBreadcrumb records a breadcrumb, evicting the oldest when full.
func (s *Scope) AddBreadcrumb(b Breadcrumb) {
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breadcrumbs.Add(b)
}

// Breadcrumbs returns the recorded breadcrumbs, oldest first.
func (s *Scope) Breadcrumbs() []Breadcrumb {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.breadcrumbs.GetAll()
}

// Clear resets the scope.
func (s *Scope) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = make(map[string]string)
	s.extra = make(map[string]any)
	s.contexts = make(map[string]Context)
	s.user = nil
	s.level = ""
	s.fingerprint = nil
	s.breadcrumbs = breadcrumbBuffer{maxSize: s.breadcrumbs.maxSize}
}

// ApplyToEvent merges the scope into event. Values already present on the
// event win over scope values.
func (s *Scope) ApplyToEvent(event *Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.tags) > 0 {
		if event.Tags == nil {
			event.Tags = make(map[string]string, len(s.tags))
		}
		for k, v := range s.tags {
			if _, ok := event.Tags[k]; !ok {
				event.Tags[k] = v
			}
		}
	}

	for k, v := range s.extra {
		if _, ok := event.Extra[k]; !ok {
			event.setExtra(k, v)
		}
	}

	for name, c := range s.contexts {
		if _, ok := event.Contexts[name]; ok {
			continue
		}
		dst := event.context(name)
		for k, v := range c {
			dst[k] = v
		}
	}

	if event.User == nil && s.user != nil {
		u := *s.user
		event.User = &u
	}
	if s.level != "" {
		event.Level = s.level
	}
	if len(event.Fingerprint) == 0 && len(s.fingerprint) > 0 {
		event.Fingerprint = append([]string(nil), s.fingerprint...)
	}
	if crumbs := s.breadcrumbs.GetAll(); len(crumbs) > 0 {
		event.Breadcrumbs = append(crumbs, event.Breadcrumbs...)
	}
}

// breadcrumbBuffer is a bounded ring buffer.
type breadcrumbBuffer struct {
	records  []Breadcrumb
	maxSize  int
	writeIdx int
}

// Add appends a record, evicting oldest if buffer is full.
func (b *breadcrumbBuffer) Add(record Breadcrumb) {
	if len(b.records) < b.maxSize {
		b.records = append(b.records, record)
	} else {
		b.records[b.writeIdx] = record
		b.writeIdx = (b.writeIdx + 1) % b.maxSize
	}
}

// GetAll returns a copy of the records in chronological order (oldest first).
func (b *breadcrumbBuffer) GetAll() []Breadcrumb {
	if len(b.records) == 0 {
		return nil
	}

	result := make([]Breadcrumb, len(b.records))
	if len(b.records) < b.maxSize {
		copy(result, b.records)
		return result
	}

	// writeIdx points to the oldest record
	copy(result, b.records[b.writeIdx:])
	copy(result[len(b.records)-b.writeIdx:], b.records[:b.writeIdx])
	return result
}
