// Package session implements the dialogue engine that owns one live support
// call: turn-taking, issue lookup, step-by-step resolution delivery, AI
// escalation and barge-in handling. Each Session is driven by exactly one
// goroutine; concurrent calls share nothing but the immutable catalog.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"printer-voice-agent/internal/aifallback"
	"printer-voice-agent/internal/catalog"
	"printer-voice-agent/internal/match"
	"printer-voice-agent/internal/phrase"
	"printer-voice-agent/internal/quality"
	"printer-voice-agent/internal/transport"
)

// Config carries the engine tunables. Zero values are replaced with the
// defaults used in production.
type Config struct {
	MatchThreshold float64
	CoopLowCutoff  float64
	CoopHighCutoff float64
	IdleTimeout    time.Duration
	StepRetryLimit int
}

func (c Config) withDefaults() Config {
	if c.MatchThreshold == 0 {
		c.MatchThreshold = 0.8
	}
	if c.CoopLowCutoff == 0 {
		c.CoopLowCutoff = 40
	}
	if c.CoopHighCutoff == 0 {
		c.CoopHighCutoff = 70
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 20 * time.Second
	}
	if c.StepRetryLimit == 0 {
		c.StepRetryLimit = 1
	}
	return c
}

// Observer receives engine events; the metrics package implements it.
type Observer interface {
	SessionStarted()
	SessionClosed(escalated bool)
	MatchScored(confidence float64, method string)
	Escalated(aiUsable bool)
	BargeIn()
}

type nopObserver struct{}

func (nopObserver) SessionStarted()             {}
func (nopObserver) SessionClosed(bool)          {}
func (nopObserver) MatchScored(float64, string) {}
func (nopObserver) Escalated(bool)              {}
func (nopObserver) BargeIn()                    {}

// stepSource records where the active resolution script came from.
type stepSource string

const (
	sourceCatalog stepSource = "catalog"
	sourceAI      stepSource = "ai"
)

// Session is the root aggregate for one call. All mutation happens on the
// Run goroutine; mu guards the fields read by Snapshot.
type Session struct {
	id      string
	cfg     Config
	cat     *catalog.Catalog
	ai      aifallback.Analyzer
	tr      transport.Transport
	monitor *quality.Monitor
	obs     Observer
	log     *logrus.Entry

	mu         sync.Mutex
	state      State
	issue      *catalog.Issue
	steps      []string
	source     stepSource
	cursor     int
	rejections int
	escalated  bool
	history    []TurnEntry
	startedAt  time.Time

	cancel    context.CancelFunc
	closeOnce sync.Once
	now       func() time.Time
}

// New constructs a session over an established transport. ai may be an inert
// adapter; the engine then completes calls catalog-only.
func New(cfg Config, cat *catalog.Catalog, ai aifallback.Analyzer, tr transport.Transport, obs Observer, log *logrus.Entry) *Session {
	if obs == nil {
		obs = nopObserver{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Session{
		id:        uuid.New().String(),
		cfg:       cfg.withDefaults(),
		cat:       cat,
		ai:        ai,
		tr:        tr,
		monitor:   quality.NewMonitor(),
		obs:       obs,
		state:     StateGreeting,
		startedAt: time.Now(),
		now:       time.Now,
	}
	s.log = log.WithField("session_id", s.id)
	tr.OnInterrupt(func() {
		s.obs.BargeIn()
		s.log.Debug("barge-in signaled")
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run drives the call until it ends. It always leaves the session Closed and
// the transport released.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer s.Close()

	s.obs.SessionStarted()
	s.log.Info("session started")

	if err := s.speak(ctx, phrase.Greeting(s.pace())); err != nil {
		return s.fatal(err)
	}
	s.setState(StateListening)

	for {
		utterance, err := s.waitForTurn(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errIdleTimeout):
			s.record(SpeakerSystem, "call closed after idle timeout", false)
			s.log.Info("closing on idle timeout")
			return nil
		case errors.Is(err, transport.ErrClosed):
			s.record(SpeakerSystem, "caller disconnected", false)
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			return s.fatal(err)
		}

		done, err := s.handleTurn(ctx, utterance)
		if err != nil {
			return s.fatal(err)
		}
		if done {
			return nil
		}
	}
}

var errIdleTimeout = errors.New("idle timeout")

// waitForTurn blocks for the next caller utterance. In Closing the wait is
// bounded by the idle window; everywhere else it is unbounded.
func (s *Session) waitForTurn(ctx context.Context) (string, error) {
	if s.currentState() != StateClosing {
		return s.tr.NextUtterance(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.IdleTimeout)
	defer cancel()
	utterance, err := s.tr.NextUtterance(cctx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return "", errIdleTimeout
	}
	return utterance, err
}

// handleTurn runs the per-turn protocol for one caller utterance.
func (s *Session) handleTurn(ctx context.Context, utterance string) (bool, error) {
	if s.currentState() == StateClosed {
		return true, fmt.Errorf("%w: turn after close", ErrLogicViolation)
	}

	s.record(SpeakerCaller, utterance, false)
	sample := s.observe(utterance)
	s.log.WithFields(logrus.Fields{
		"state":       s.currentState(),
		"sentiment":   sample.Sentiment,
		"cooperation": s.cooperation(),
	}).Debug("caller turn")

	switch {
	case s.currentState() == StateClosing, detectGoodbye(utterance):
		// the acknowledgment turn, or a goodbye anywhere, ends the call
		if err := s.speak(ctx, phrase.Goodbye(s.pace())); err != nil {
			return true, err
		}
		return true, nil
	case s.stepsActive():
		return false, s.resolvingTurn(ctx, utterance)
	default:
		return false, s.matchingTurn(ctx, utterance)
	}
}

// matchingTurn looks the utterance up in the catalog and either starts a
// resolution or escalates.
func (s *Session) matchingTurn(ctx context.Context, utterance string) error {
	if len(match.Tokenize(utterance)) == 0 {
		// recognition glitch: no content to match, re-prompt instead
		return s.speak(ctx, phrase.MoreDetail(s.pace()))
	}

	s.setState(StateMatching)
	res := match.Match(utterance, s.cat.All(), s.cfg.MatchThreshold)
	s.obs.MatchScored(res.Confidence, string(res.Method))
	s.log.WithFields(logrus.Fields{
		"confidence": res.Confidence,
		"method":     res.Method,
	}).Info("matched utterance")

	if res.Issue != nil {
		s.mu.Lock()
		s.issue = res.Issue
		s.steps = res.Issue.Steps
		s.source = sourceCatalog
		s.cursor = 0
		s.rejections = 0
		s.mu.Unlock()
		return s.deliverStep(ctx, true, "")
	}
	return s.escalateTurn(ctx, utterance)
}

// escalateTurn invokes the AI fallback; a usable analysis feeds the same
// resolving loop, an unusable one closes the call flagged for human handoff.
func (s *Session) escalateTurn(ctx context.Context, utterance string) error {
	s.setState(StateEscalating)
	if err := s.speak(ctx, phrase.Escalating(s.pace())); err != nil {
		return err
	}

	analysis := s.ai.Analyze(ctx, utterance, s.recentTurns(6))
	s.obs.Escalated(analysis.Usable)
	if analysis.Usable && len(analysis.Steps) > 0 {
		s.log.WithField("steps", len(analysis.Steps)).Info("ai analysis usable")
		s.mu.Lock()
		s.issue = nil
		s.steps = analysis.Steps
		s.source = sourceAI
		s.cursor = 0
		s.rejections = 0
		s.mu.Unlock()
		return s.deliverStep(ctx, true, analysis.Diagnosis)
	}

	s.log.Info("ai analysis unavailable, closing with escalation")
	s.mu.Lock()
	s.escalated = true
	s.mu.Unlock()
	s.setState(StateClosing)
	return s.speak(ctx, phrase.Closing(s.pace(), true))
}

// resolvingTurn interprets the caller's reaction to the last delivered step.
func (s *Session) resolvingTurn(ctx context.Context, utterance string) error {
	s.mu.Lock()
	cursor, total := s.cursor, len(s.steps)
	s.mu.Unlock()

	switch interpretReply(utterance) {
	case replyResolved:
		s.mu.Lock()
		s.cursor = total
		s.mu.Unlock()
		s.setState(StateClosing)
		return s.speak(ctx, phrase.Closing(s.pace(), false))

	case replyConfirm:
		s.mu.Lock()
		s.cursor++
		s.rejections = 0
		done := s.cursor >= total
		s.mu.Unlock()
		if done {
			s.setState(StateClosing)
			return s.speak(ctx, phrase.Closing(s.pace(), false))
		}
		return s.deliverStep(ctx, false, "")

	case replyReject:
		s.mu.Lock()
		s.rejections++
		exhausted := s.rejections > s.cfg.StepRetryLimit
		source := s.source
		s.mu.Unlock()
		if !exhausted {
			return s.repeatStep(ctx)
		}
		if source == sourceCatalog {
			// the scripted fix failed twice; let the analyzer have a look
			return s.escalateTurn(ctx, s.describeFailure(utterance))
		}
		s.mu.Lock()
		s.escalated = true
		s.mu.Unlock()
		s.setState(StateClosing)
		return s.speak(ctx, phrase.Closing(s.pace(), true))

	default:
		if cursor >= total {
			return fmt.Errorf("%w: cursor %d past %d steps", ErrLogicViolation, cursor, total)
		}
		s.mu.Lock()
		instruction := s.steps[cursor]
		s.mu.Unlock()
		return s.speak(ctx, phrase.Clarify(s.pace(), instruction))
	}
}

// deliverStep speaks exactly one instruction from the active resolution.
// intro, when set, is spoken ahead of the first step (the AI diagnosis).
func (s *Session) deliverStep(ctx context.Context, first bool, intro string) error {
	s.mu.Lock()
	cursor, total := s.cursor, len(s.steps)
	if cursor < 0 || cursor >= total {
		s.mu.Unlock()
		return fmt.Errorf("%w: cursor %d out of range [0,%d)", ErrLogicViolation, cursor, total)
	}
	instruction := s.steps[cursor]
	s.mu.Unlock()

	if total > 1 {
		instruction = phrase.StepNumber(cursor+1, total) + " " + instruction
	}
	text := phrase.Step(s.pace(), instruction, first)
	if intro != "" {
		text = intro + " " + text
	}
	s.setState(StateResolving)
	return s.speak(ctx, text)
}

// repeatStep re-offers the current instruction after a rejection. The cursor
// does not move.
func (s *Session) repeatStep(ctx context.Context) error {
	s.mu.Lock()
	cursor, total := s.cursor, len(s.steps)
	if cursor < 0 || cursor >= total {
		s.mu.Unlock()
		return fmt.Errorf("%w: cursor %d out of range [0,%d)", ErrLogicViolation, cursor, total)
	}
	instruction := s.steps[cursor]
	s.mu.Unlock()

	s.setState(StateResolving)
	return s.speak(ctx, phrase.RepeatStep(s.pace(), instruction))
}

// speak delivers text through the transport, records what was actually said
// and re-enters Listening. A transport failure is fatal to the session.
func (s *Session) speak(ctx context.Context, text string) error {
	spoken, interrupted, err := s.tr.Speak(ctx, text)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.record(SpeakerSystem, "transport error: "+err.Error(), false)
		return err
	}
	if interrupted {
		s.record(SpeakerAgent, spoken, true)
		s.log.WithField("spoken", spoken).Info("delivery interrupted by caller")
	} else if spoken != "" {
		s.record(SpeakerAgent, spoken, false)
	}
	if err != nil {
		return err
	}
	// after a delivery the engine is back to waiting on the caller;
	// Escalating and Closing keep their state across the speak
	switch s.currentState() {
	case StateGreeting, StateMatching, StateResolving:
		s.setState(StateListening)
	}
	return nil
}

func (s *Session) describeFailure(utterance string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issue != nil {
		return fmt.Sprintf("The scripted fix for %q did not work. Caller says: %s", s.issue.Summary, utterance)
	}
	return utterance
}

// fatal records the failure, forces the session closed and returns err.
func (s *Session) fatal(err error) error {
	if errors.Is(err, ErrLogicViolation) {
		s.log.WithField("error", err.Error()).Error("logic violation, closing session")
	} else {
		s.log.WithField("error", err.Error()).Error("fatal session error")
	}
	s.Close()
	return err
}

// Close tears the session down: cancels any in-flight AI call, releases the
// transport and marks the state Closed. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.state = StateClosed
		escalated := s.escalated
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		_ = s.tr.Terminate()
		s.obs.SessionClosed(escalated)
		s.log.WithField("escalated", escalated).Info("session closed")
	})
}

func (s *Session) pace() phrase.Pace {
	return phrase.PaceFor(s.cooperation(), s.cfg.CoopLowCutoff, s.cfg.CoopHighCutoff)
}

// observe and cooperation wrap the monitor under the session lock so the
// control surface can read snapshots while the turn loop runs.
func (s *Session) observe(utterance string) quality.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor.Observe(utterance)
}

func (s *Session) cooperation() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor.Cooperation()
}

// Trend returns a copy of the session's quality aggregate.
func (s *Session) Trend() quality.Trend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor.Trend()
}

func (s *Session) stepsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps) > 0 && s.cursor < len(s.steps)
}

func (s *Session) record(sp Speaker, text string, interrupted bool) {
	s.mu.Lock()
	s.history = append(s.history, TurnEntry{Speaker: sp, Text: text, At: s.now(), Interrupted: interrupted})
	s.mu.Unlock()
}

func (s *Session) recentTurns(n int) []aifallback.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.history) - n
	if start < 0 {
		start = 0
	}
	turns := make([]aifallback.Turn, 0, len(s.history)-start)
	for _, e := range s.history[start:] {
		if e.Speaker == SpeakerSystem {
			continue
		}
		turns = append(turns, aifallback.Turn{Speaker: string(e.Speaker), Text: e.Text})
	}
	return turns
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) currentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the turn log.
func (s *Session) History() []TurnEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TurnEntry, len(s.history))
	copy(out, s.history)
	return out
}

// Snapshot is the read-only view served by the control surface.
type Snapshot struct {
	ID          string    `json:"id"`
	State       State     `json:"state"`
	IssueID     string    `json:"issue_id,omitempty"`
	Step        int       `json:"step"`
	TotalSteps  int       `json:"total_steps"`
	Cooperation float64   `json:"cooperation"`
	Escalated   bool      `json:"escalated"`
	Turns       int       `json:"turns"`
	StartedAt   time.Time `json:"started_at"`
}

// Snapshot captures the session's current public state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:          s.id,
		State:       s.state,
		Step:        s.cursor,
		TotalSteps:  len(s.steps),
		Cooperation: s.monitor.Cooperation(),
		Escalated:   s.escalated,
		Turns:       len(s.history),
		StartedAt:   s.startedAt,
	}
	if s.issue != nil {
		snap.IssueID = s.issue.ID
	}
	return snap
}
