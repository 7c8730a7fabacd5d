package aifallback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func stubServer(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": []map[string]string{{"type": "text", "text": text}},
			})
		}
	}))
}

func newTestClient(url string) *Client {
	c := NewClient("key", "test-model", 2*time.Second, 2, nil)
	c.Endpoint = url
	return c
}

func TestAnalyze_Unconfigured(t *testing.T) {
	calls := int32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient("", "test-model", time.Second, 2, nil)
	c.Endpoint = srv.URL
	a := c.Analyze(context.Background(), "weird noise", nil)
	if a.Usable {
		t.Fatalf("expected unusable analysis when unconfigured")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("unconfigured client must not hit the network")
	}
}

func TestAnalyze_Success(t *testing.T) {
	srv := stubServer(t, http.StatusOK,
		"The print head is likely overheating.\n1. Unplug the printer.\n2. Wait five minutes.\n3. Plug it back in.")
	defer srv.Close()

	c := newTestClient(srv.URL)
	a := c.Analyze(context.Background(), "clicking noise and burning smell", []Turn{
		{Speaker: "caller", Text: "my printer is broken"},
	})
	if !a.Usable {
		t.Fatalf("expected usable analysis")
	}
	if a.Diagnosis != "The print head is likely overheating." {
		t.Fatalf("diagnosis: got %q", a.Diagnosis)
	}
	want := []string{"Unplug the printer.", "Wait five minutes.", "Plug it back in."}
	if !reflect.DeepEqual(a.Steps, want) {
		t.Fatalf("steps: got %v want %v", a.Steps, want)
	}
}

func TestAnalyze_ServerErrorDegrades(t *testing.T) {
	srv := stubServer(t, http.StatusInternalServerError, "")
	defer srv.Close()

	c := newTestClient(srv.URL)
	a := c.Analyze(context.Background(), "broken", nil)
	if a.Usable {
		t.Fatalf("expected unusable analysis on 500")
	}
}

func TestAnalyze_ClientErrorNotRetried(t *testing.T) {
	calls := int32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	a := c.Analyze(context.Background(), "broken", nil)
	if a.Usable {
		t.Fatalf("expected unusable analysis on 401")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", got)
	}
}

func TestAnalyze_TimeoutDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient("key", "test-model", 50*time.Millisecond, 1, nil)
	c.Endpoint = srv.URL
	start := time.Now()
	a := c.Analyze(context.Background(), "broken", nil)
	if a.Usable {
		t.Fatalf("expected unusable analysis on timeout")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not bounded")
	}
}

func TestParseAnalysis(t *testing.T) {
	diag, steps := parseAnalysis("Likely a jam.\n\n1) Open the door.\n- Remove the roll.\n* Close the door.\ntrailing note")
	if diag != "Likely a jam." {
		t.Fatalf("diagnosis: %q", diag)
	}
	want := []string{"Open the door.", "Remove the roll.", "Close the door."}
	if !reflect.DeepEqual(steps, want) {
		t.Fatalf("steps: %v", steps)
	}
}

func TestBuildPrompt_IncludesHistory(t *testing.T) {
	p := buildPrompt("still broken", []Turn{{Speaker: "agent", Text: "try resetting"}})
	for _, substr := range []string{"[AGENT] try resetting", "still broken"} {
		if !strings.Contains(p, substr) {
			t.Fatalf("prompt missing %q:\n%s", substr, p)
		}
	}
}
