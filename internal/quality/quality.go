// Package quality scores caller utterances for sentiment and keeps a running
// cooperation estimate for one call. The monitor is owned by a single session
// and is not safe for concurrent use; sessions never share one.
package quality

import (
	"strings"
	"time"
)

// Sentiment is the lexical classification of one caller utterance.
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentNegative   Sentiment = "negative"
	SentimentFrustrated Sentiment = "frustrated"
)

// Band summarizes the overall conversation health.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandNeutral   Band = "neutral"
	BandPoor      Band = "poor"
	BandCritical  Band = "critical"
)

// Sample is one observed utterance's classification. Score is in [-1,1].
type Sample struct {
	Sentiment Sentiment
	Score     float64
	At        time.Time
}

// Trend is a snapshot of the session's rolling aggregate.
type Trend struct {
	Samples     []Sample
	Average     float64 // running mean of sample scores
	Cooperation float64 // EWMA rescaled to [0,100], seeded at 50
}

// Band derives the coarse health band from the trend.
func (t Trend) Band() Band {
	switch {
	case t.Cooperation < 20:
		return BandCritical
	case t.Cooperation < 40:
		return BandPoor
	case t.Cooperation > 80:
		return BandExcellent
	case t.Cooperation > 65:
		return BandGood
	default:
		return BandNeutral
	}
}

// ewmaAlpha controls how fast the cooperation estimate tracks new samples.
const ewmaAlpha = 0.3

// Monitor accumulates samples for one session. The sample log is append-only
// for the duration of the call.
type Monitor struct {
	samples []Sample
	sum     float64
	coop    float64
	now     func() time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{coop: 50, now: time.Now}
}

// Observe classifies the utterance, appends exactly one sample and updates
// the aggregate.
func (m *Monitor) Observe(utterance string) Sample {
	sentiment, score := Classify(utterance)
	s := Sample{Sentiment: sentiment, Score: score, At: m.now()}
	m.samples = append(m.samples, s)
	m.sum += score
	m.coop += ewmaAlpha * (rescale(score) - m.coop)
	if m.coop < 0 {
		m.coop = 0
	} else if m.coop > 100 {
		m.coop = 100
	}
	return s
}

// Trend returns a copy of the current aggregate.
func (m *Monitor) Trend() Trend {
	samples := make([]Sample, len(m.samples))
	copy(samples, m.samples)
	avg := 0.0
	if len(m.samples) > 0 {
		avg = m.sum / float64(len(m.samples))
	}
	return Trend{Samples: samples, Average: avg, Cooperation: m.coop}
}

// Cooperation returns the current estimate without copying the sample log.
func (m *Monitor) Cooperation() float64 { return m.coop }

// rescale maps a [-1,1] score onto the [0,100] cooperation scale.
func rescale(score float64) float64 { return (score + 1) * 50 }

// Signal lexicons, adapted from the live-call cooperation scorer. Phrases are
// matched against the normalized utterance; multi-word entries must appear
// verbatim.
var (
	frustratedSignals = []string{
		"already did", "not working", "still broken", "still not working",
		"ugh", "frustrated", "frustrating", "annoyed", "annoying", "angry",
		"ridiculous", "unacceptable", "stupid", "hate", "worst", "terrible",
		"awful", "horrible", "fed up", "sick of", "manager", "supervisor",
	}
	negativeSignals = []string{
		"busy", "later", "not now", "in a rush", "cant", "maybe",
		"not sure", "dont have time",
	}
	confusedSignals = []string{
		"what", "dont understand", "where", "huh", "repeat", "confused",
		"say that again",
	}
	positiveSignals = []string{
		"okay", "ok", "sure", "yes", "got it", "done", "ready", "yep",
		"yeah", "alright", "perfect", "great", "thanks", "thank you",
		"sounds good", "will do", "no problem",
	}
)

// Classify maps an utterance to a sentiment class and a score in [-1,1].
// Pure function: bad input degrades to neutral, never errors.
func Classify(utterance string) (Sentiment, float64) {
	norm := normalize(utterance)
	if norm == "" {
		return SentimentNeutral, 0
	}
	switch {
	case hasAny(norm, frustratedSignals):
		return SentimentFrustrated, -0.8
	case hasAny(norm, confusedSignals):
		return SentimentNegative, -0.2
	case hasAny(norm, negativeSignals):
		return SentimentNegative, -0.4
	case hasAny(norm, positiveSignals):
		return SentimentPositive, 0.6
	default:
		return SentimentNeutral, 0
	}
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '\'':
			// drop so "don't" matches "dont"
		default:
			b.WriteRune(' ')
		}
	}
	return " " + strings.Join(strings.Fields(b.String()), " ") + " "
}

func hasAny(norm string, signals []string) bool {
	for _, sig := range signals {
		if strings.Contains(norm, " "+sig+" ") {
			return true
		}
	}
	return false
}
