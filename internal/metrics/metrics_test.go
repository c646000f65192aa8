package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/garnizeh/crackedclub/internal/metrics"
)

func TestRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveRequest("POST", "/v1/join/submit", 201, 20*time.Millisecond)
	m.ObserveRequest("POST", "/v1/join/submit", 201, 30*time.Millisecond)
	m.Submission("join", "submitted")
	m.Submission("waitlist", "failed")
	m.Job("application.deliver", "retry")
	m.TrackSessions(func() int { return 7 })

	if n, err := testutil.GatherAndCount(reg, "crackedclub_http_requests_total"); err != nil || n != 1 {
		t.Fatalf("expected 1 request series, got %d", n)
	}
	if n, err := testutil.GatherAndCount(reg, "crackedclub_submissions_total"); err != nil || n != 2 {
		t.Fatalf("expected 2 submission series, got %d", n)
	}
	if n, err := testutil.GatherAndCount(reg, "crackedclub_jobs_total"); err != nil || n != 1 {
		t.Fatalf("expected 1 job series, got %d", n)
	}
	if n, err := testutil.GatherAndCount(reg, "crackedclub_active_sessions"); err != nil || n != 1 {
		t.Fatalf("expected session gauge, got %d", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.Submission("join", "busy")
	m.Job("x", "done")
	m.TrackSessions(func() int { return 1 })
}
