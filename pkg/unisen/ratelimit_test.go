package unisen

import (
	"net/http"
	"testing"
	"time"
)

func strPtr(s string) *string {
	return &s
}

func TestRateLimits_CategoryHeader(t *testing.T) {
	now := time.Now()
	r := newRateLimits()

	r.update(TransportResponse{
		StatusCode: 200,
		Headers:    map[string]*string{HeaderRateLimits: strPtr("60:error;transaction:organization, 10:session")},
	}, now)

	if !r.isLimited("error", now.Add(30*time.Second)) {
		t.Error("error should be limited for 60s")
	}
	if r.isLimited("error", now.Add(61*time.Second)) {
		t.Error("error limit should expire")
	}
	if !r.isLimited("session", now.Add(5*time.Second)) {
		t.Error("session should be limited for 10s")
	}
	if r.isLimited("attachment", now) {
		t.Error("attachment should not be limited")
	}
}

func TestRateLimits_EmptyCategoriesLimitAll(t *testing.T) {
	now := time.Now()
	r := newRateLimits()

	r.update(TransportResponse{Headers: map[string]*string{HeaderRateLimits: strPtr("30::key")}}, now)

	if !r.isLimited("error", now) || !r.isLimited("anything", now) {
		t.Error("limit without categories should apply to all")
	}
}

func TestRateLimits_RetryAfter(t *testing.T) {
	now := time.Now()
	r := newRateLimits()

	r.update(TransportResponse{
		StatusCode: http.StatusTooManyRequests,
		Headers:    map[string]*string{HeaderRetryAfter: strPtr("5")},
	}, now)

	if !r.isLimited("error", now.Add(4*time.Second)) {
		t.Error("should be limited during retry-after")
	}
	if r.isLimited("error", now.Add(6*time.Second)) {
		t.Error("limit should expire after retry-after")
	}
}

func TestRateLimits_Bare429(t *testing.T) {
	now := time.Now()
	r := newRateLimits()

	r.update(TransportResponse{StatusCode: http.StatusTooManyRequests}, now)

	if !r.isLimited("error", now.Add(59*time.Second)) {
		t.Error("bare 429 should back off for 60s")
	}
	if r.isLimited("error", now.Add(61*time.Second)) {
		t.Error("bare 429 backoff should expire")
	}
}

func TestRateLimits_NoHeaders(t *testing.T) {
	now := time.Now()
	r := newRateLimits()

	r.update(TransportResponse{StatusCode: 200, Headers: map[string]*string{HeaderRateLimits: nil, HeaderRetryAfter: nil}}, now)

	if r.isLimited("error", now) {
		t.Error("200 without headers should not limit")
	}
}

func TestRateLimits_KeepsLongestLimit(t *testing.T) {
	now := time.Now()
	r := newRateLimits()

	r.update(TransportResponse{Headers: map[string]*string{HeaderRateLimits: strPtr("60:error")}}, now)
	r.update(TransportResponse{Headers: map[string]*string{HeaderRateLimits: strPtr("5:error")}}, now)

	if !r.isLimited("error", now.Add(30*time.Second)) {
		t.Error("shorter limit should not shrink an existing one")
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if d := parseRetryAfter("2.5", now); d != 2500*time.Millisecond {
		t.Errorf("seconds: got %v", d)
	}
	date := now.Add(90 * time.Second).Format(http.TimeFormat)
	if d := parseRetryAfter(date, now); d != 90*time.Second {
		t.Errorf("http date: got %v", d)
	}
	if d := parseRetryAfter("garbage", now); d != defaultRetryAfter {
		t.Errorf("garbage: got %v", d)
	}
}
