// Package match scores a caller utterance against the issue catalog.
// Match is a pure function: no state, deterministic, safe for concurrent use
// by any number of sessions.
package match

import (
	"strings"

	"printer-voice-agent/internal/catalog"
)

// Method records how the winning candidate was found.
type Method string

const (
	MethodExact Method = "exact" // a full trigger phrase appeared in the utterance
	MethodFuzzy Method = "fuzzy" // partial token overlap only
	MethodNone  Method = "none"
)

// Result is the outcome of matching one utterance. Issue is nil whenever
// Confidence is below the threshold, even if some token overlap exists.
type Result struct {
	Issue      *catalog.Issue
	Confidence float64
	Method     Method
}

const (
	phraseScore     = 1.0  // multi-word trigger phrase found verbatim
	singleWordScore = 0.85 // single-word trigger found verbatim
	overlapWeight   = 0.6  // scale for partial token overlap
)

// Match scores utterance against every issue and returns the best candidate.
// Ties prefer the issue with fewer triggers (the more specific record), then
// catalog order. Confidence is always in [0,1].
func Match(utterance string, issues []catalog.Issue, threshold float64) Result {
	tokens := Tokenize(utterance)
	best := Result{Method: MethodNone}
	bestTriggers := 0
	for i := range issues {
		score, method := scoreIssue(tokens, &issues[i])
		if score > best.Confidence ||
			(score == best.Confidence && score > 0 && len(issues[i].Triggers) < bestTriggers) {
			iss := issues[i]
			best = Result{Issue: &iss, Confidence: score, Method: method}
			bestTriggers = len(issues[i].Triggers)
		}
	}
	if best.Confidence < threshold || best.Confidence == 0 {
		best.Issue = nil
		if best.Confidence == 0 {
			best.Method = MethodNone
		}
	}
	return best
}

func scoreIssue(utterance []string, iss *catalog.Issue) (float64, Method) {
	var score float64
	method := MethodNone
	for _, trig := range iss.Triggers {
		trigTokens := Tokenize(trig)
		if len(trigTokens) == 0 {
			continue
		}
		if containsPhrase(utterance, trigTokens) {
			s := phraseScore
			if len(trigTokens) == 1 {
				s = singleWordScore
			}
			if s > score {
				score = s
				method = MethodExact
			}
			continue
		}
		if frac := overlap(utterance, trigTokens); frac > 0 {
			s := overlapWeight * frac
			if s > score {
				score = s
				method = MethodFuzzy
			}
		}
	}
	return score, method
}

// Tokenize lowercases, strips punctuation and splits into words. Apostrophes
// are removed rather than replaced so "won't" matches "wont".
func Tokenize(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '\'':
			// drop
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// containsPhrase reports whether phrase occurs as a contiguous token run.
func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(tokens) < len(phrase) {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j := range phrase {
			if tokens[i+j] != phrase[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

// overlap is the fraction of the trigger's content tokens present in the
// utterance. Stopwords in the trigger are ignored so "out of paper" does not
// get credit for a stray "of".
func overlap(tokens, trigger []string) float64 {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	var content, hit int
	for _, t := range trigger {
		if isStopword(t) {
			continue
		}
		content++
		if set[t] {
			hit++
		}
	}
	if content == 0 {
		return 0
	}
	return float64(hit) / float64(content)
}

func isStopword(s string) bool {
	switch s {
	case "the", "a", "an", "and", "or", "to", "of", "in", "on", "for", "is", "it", "not", "my":
		return true
	}
	return false
}
