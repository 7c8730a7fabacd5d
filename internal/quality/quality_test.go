package quality

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want Sentiment
	}{
		{"okay sure, I'm ready", SentimentPositive},
		{"got it, thanks", SentimentPositive},
		{"", SentimentNeutral},
		{"the printer is on lane four", SentimentNeutral},
		{"I'm really busy, can we do this later", SentimentNegative},
		{"what? I don't understand", SentimentNegative},
		{"I already did that, it's still broken", SentimentFrustrated},
		{"this is ridiculous, let me talk to a manager", SentimentFrustrated},
		{"ugh", SentimentFrustrated},
	}
	for _, tc := range cases {
		got, score := Classify(tc.in)
		if got != tc.want {
			t.Fatalf("Classify(%q): got %s want %s", tc.in, got, tc.want)
		}
		if score < -1 || score > 1 {
			t.Fatalf("Classify(%q): score %v out of range", tc.in, score)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	s1, v1 := Classify("I already did that")
	s2, v2 := Classify("I already did that")
	if s1 != s2 || v1 != v2 {
		t.Fatalf("classification not deterministic")
	}
}

func TestMonitor_SampleCountMatchesObserves(t *testing.T) {
	m := NewMonitor()
	utterances := []string{"okay", "what", "still broken", "", "yes done"}
	for _, u := range utterances {
		m.Observe(u)
	}
	tr := m.Trend()
	if len(tr.Samples) != len(utterances) {
		t.Fatalf("expected %d samples, got %d", len(utterances), len(tr.Samples))
	}
}

func TestMonitor_CooperationBounds(t *testing.T) {
	m := NewMonitor()
	if m.Cooperation() != 50 {
		t.Fatalf("expected neutral seed of 50, got %v", m.Cooperation())
	}
	for i := 0; i < 50; i++ {
		m.Observe("this is ridiculous and still broken")
		if c := m.Cooperation(); c < 0 || c > 100 {
			t.Fatalf("cooperation out of range: %v", c)
		}
	}
	for i := 0; i < 50; i++ {
		m.Observe("perfect, thank you")
		if c := m.Cooperation(); c < 0 || c > 100 {
			t.Fatalf("cooperation out of range: %v", c)
		}
	}
}

func TestMonitor_FrustrationDrivesCooperationDown(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 5; i++ {
		s := m.Observe("I already did that, still broken, this is ridiculous")
		if s.Sentiment != SentimentFrustrated {
			t.Fatalf("expected frustrated sample, got %s", s.Sentiment)
		}
	}
	if c := m.Cooperation(); c >= 40 {
		t.Fatalf("expected cooperation below 40 after 5 frustrated turns, got %v", c)
	}
}

func TestMonitor_AppendOnly(t *testing.T) {
	m := NewMonitor()
	m.Observe("okay")
	first := m.Trend().Samples[0]
	m.Observe("still broken")
	m.Observe("what")
	tr := m.Trend()
	if tr.Samples[0] != first {
		t.Fatalf("prior sample mutated")
	}
	// snapshot copies must not alias internal state
	tr.Samples[0].Score = 99
	if m.Trend().Samples[0].Score == 99 {
		t.Fatalf("trend snapshot aliases monitor state")
	}
}

func TestMonitor_Average(t *testing.T) {
	m := NewMonitor()
	m.now = func() time.Time { return time.Unix(0, 0) }
	m.Observe("okay")         // +0.6
	m.Observe("the printer")  // 0
	m.Observe("still broken") // -0.8
	avg := m.Trend().Average
	want := (0.6 + 0 - 0.8) / 3
	if diff := avg - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("average: got %v want %v", avg, want)
	}
}

func TestTrend_Band(t *testing.T) {
	cases := []struct {
		coop float64
		want Band
	}{
		{10, BandCritical},
		{30, BandPoor},
		{50, BandNeutral},
		{70, BandGood},
		{90, BandExcellent},
	}
	for _, tc := range cases {
		got := Trend{Cooperation: tc.coop}.Band()
		if got != tc.want {
			t.Fatalf("Band(%v): got %s want %s", tc.coop, got, tc.want)
		}
	}
}
