package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"printer-voice-agent/internal/session"
)

var _ session.Observer = (*Metrics)(nil)

func TestMetrics_SessionLifecycle(t *testing.T) {
	m := New()

	m.SessionStarted()
	m.SessionStarted()
	if got := testutil.ToFloat64(m.SessionsActive); got != 2 {
		t.Fatalf("active after two starts: %v", got)
	}

	m.SessionClosed(false)
	m.SessionClosed(true)
	if got := testutil.ToFloat64(m.SessionsActive); got != 0 {
		t.Fatalf("active after closes: %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsClosed.WithLabelValues("resolved")); got != 1 {
		t.Fatalf("resolved closes: %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsClosed.WithLabelValues("escalated")); got != 1 {
		t.Fatalf("escalated closes: %v", got)
	}
}

func TestMetrics_EscalationsAndBargeIns(t *testing.T) {
	m := New()
	m.Escalated(true)
	m.Escalated(false)
	m.Escalated(false)
	m.BargeIn()

	if got := testutil.ToFloat64(m.Escalations.WithLabelValues("usable")); got != 1 {
		t.Fatalf("usable escalations: %v", got)
	}
	if got := testutil.ToFloat64(m.Escalations.WithLabelValues("unusable")); got != 2 {
		t.Fatalf("unusable escalations: %v", got)
	}
	if got := testutil.ToFloat64(m.BargeIns); got != 1 {
		t.Fatalf("barge-ins: %v", got)
	}
}

func TestMetrics_HandlerExposesRegistry(t *testing.T) {
	m := New()
	m.SessionStarted()
	m.MatchScored(0.95, "exact")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "voiceagent_sessions_started_total 1") {
		t.Fatalf("missing started counter:\n%s", body)
	}
	if !strings.Contains(body, "voiceagent_match_confidence") {
		t.Fatalf("missing match histogram:\n%s", body)
	}
}
