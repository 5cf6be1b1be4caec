// ratelimit.go tracks server-imposed rate limits per data category.

package unisen

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// HeaderRateLimits carries per-category limits, lowercase.
	HeaderRateLimits = "x-sentry-rate-limits"

	// HeaderRetryAfter carries a global backoff, lowercase.
	HeaderRetryAfter = "retry-after"

	// allCategories is the key for limits that apply to every category.
	allCategories = ""

	defaultRetryAfter = 60 * time.Second
)

// rateLimits maps a category to the instant its limit expires.
type rateLimits struct {
	mu     sync.Mutex
	limits map[string]time.Time
}

func newRateLimits() *rateLimits {
	return &rateLimits{limits: make(map[string]time.Time)}
}

// isLimited reports whether category is limited at now.
func (r *rateLimits) isLimited(category string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if until, ok := r.limits[allCategories]; ok && now.Before(until) {
		return true
	}
	if until, ok := r.limits[category]; ok && now.Before(until) {
		return true
	}
	return false
}

// update applies the limits carried by a response.
func (r *rateLimits) update(resp TransportResponse, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v := resp.header(HeaderRateLimits); v != "" {
		for _, limit := range strings.Split(v, ",") {
			parts := strings.Split(strings.TrimSpace(limit), ":")
			if len(parts) == 0 || parts[0] == "" {
				continue
			}
			seconds, err := strconv.ParseFloat(parts[0], 64)
			if err != nil {
				seconds = defaultRetryAfter.Seconds()
			}
			until := now.Add(time.Duration(seconds * float64(time.Second)))

			var categories []string
			if len(parts) > 1 && parts[1] != "" {
				categories = strings.Split(parts[1], ";")
			} else {
				categories = []string{allCategories}
			}
			for _, c := range categories {
				r.extend(c, until)
			}
		}
		return
	}

	if v := resp.header(HeaderRetryAfter); v != "" {
		r.extend(allCategories, now.Add(parseRetryAfter(v, now)))
		return
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		r.extend(allCategories, now.Add(defaultRetryAfter))
	}
}

func (r *rateLimits) extend(category string, until time.Time) {
	if cur, ok := r.limits[category]; !ok || until.After(cur) {
		r.limits[category] = until
	}
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return defaultRetryAfter
}
