package match

import (
	"reflect"
	"testing"

	"printer-voice-agent/internal/catalog"
)

func testIssues() []catalog.Issue {
	return []catalog.Issue{
		{ID: "printer_out_of_paper", Triggers: []string{"out of paper", "no paper"}, Steps: []string{"s1", "s2"}},
		{ID: "paper_jam", Triggers: []string{"paper jam", "jammed", "paper stuck"}, Steps: []string{"s1"}},
		{ID: "printer_offline", Triggers: []string{"offline"}, Steps: []string{"s1"}},
	}
}

func TestMatch_OutOfPaper(t *testing.T) {
	r := Match("my printer says out of paper", testIssues(), 0.8)
	if r.Issue == nil || r.Issue.ID != "printer_out_of_paper" {
		t.Fatalf("expected printer_out_of_paper, got %+v", r)
	}
	if r.Confidence < 0.8 {
		t.Fatalf("expected confidence >= 0.8, got %v", r.Confidence)
	}
	if r.Method != MethodExact {
		t.Fatalf("expected exact method, got %s", r.Method)
	}
}

func TestMatch_NoOverlapYieldsNone(t *testing.T) {
	r := Match("it's making a weird clicking noise and smells like burning", testIssues(), 0.8)
	if r.Issue != nil {
		t.Fatalf("expected no issue, got %s", r.Issue.ID)
	}
	if r.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", r.Confidence)
	}
	if r.Method != MethodNone {
		t.Fatalf("expected none method, got %s", r.Method)
	}
}

func TestMatch_BelowThresholdKeepsScoreDropsIssue(t *testing.T) {
	// "paper" alone overlaps triggers but is not a full phrase.
	r := Match("something about paper maybe", testIssues(), 0.8)
	if r.Issue != nil {
		t.Fatalf("expected nil issue below threshold, got %s", r.Issue.ID)
	}
	if r.Confidence <= 0 || r.Confidence >= 0.8 {
		t.Fatalf("expected partial confidence in (0,0.8), got %v", r.Confidence)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	issues := testIssues()
	a := Match("the printer is jammed again", issues, 0.8)
	for i := 0; i < 10; i++ {
		b := Match("the printer is jammed again", issues, 0.8)
		if b.Confidence != a.Confidence || b.Method != a.Method {
			t.Fatalf("non-deterministic result: %+v vs %+v", a, b)
		}
		if (a.Issue == nil) != (b.Issue == nil) {
			t.Fatalf("non-deterministic issue presence")
		}
		if a.Issue != nil && a.Issue.ID != b.Issue.ID {
			t.Fatalf("non-deterministic issue: %s vs %s", a.Issue.ID, b.Issue.ID)
		}
	}
}

func TestMatch_ConfidenceBounds(t *testing.T) {
	utterances := []string{
		"", "paper", "out of paper paper jam offline",
		"completely unrelated text about gardening",
		"OUT OF PAPER!!!",
	}
	for _, u := range utterances {
		r := Match(u, testIssues(), 0.8)
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Fatalf("confidence out of range for %q: %v", u, r.Confidence)
		}
	}
}

func TestMatch_TieBreakPrefersFewerTriggers(t *testing.T) {
	issues := []catalog.Issue{
		{ID: "broad", Triggers: []string{"blinking light", "red light", "green light"}, Steps: []string{"s"}},
		{ID: "narrow", Triggers: []string{"blinking light"}, Steps: []string{"s"}},
	}
	r := Match("there is a blinking light", issues, 0.8)
	if r.Issue == nil || r.Issue.ID != "narrow" {
		t.Fatalf("expected narrow issue to win tie, got %+v", r.Issue)
	}
}

func TestMatch_SingleWordTrigger(t *testing.T) {
	r := Match("the screen says it is offline", testIssues(), 0.8)
	if r.Issue == nil || r.Issue.ID != "printer_offline" {
		t.Fatalf("expected printer_offline, got %+v", r.Issue)
	}
}

func TestMatch_Apostrophes(t *testing.T) {
	issues := []catalog.Issue{
		{ID: "no_power", Triggers: []string{"wont power on"}, Steps: []string{"s"}},
	}
	r := Match("it won't power on at all", issues, 0.8)
	if r.Issue == nil || r.Issue.ID != "no_power" {
		t.Fatalf("expected apostrophe-insensitive match, got %+v", r.Issue)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("It's OUT of paper, right?")
	want := []string{"its", "out", "of", "paper", "right"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenize: got %v want %v", got, want)
	}
}

func TestMatch_DefaultCatalogScenario(t *testing.T) {
	c, err := catalog.Load("")
	if err != nil {
		t.Fatal(err)
	}
	r := Match("my printer says out of paper", c.All(), 0.8)
	if r.Issue == nil || r.Issue.ID != "printer_out_of_paper" {
		t.Fatalf("expected printer_out_of_paper against default catalog, got %+v", r.Issue)
	}
}
