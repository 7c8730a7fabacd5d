package session

import (
	"errors"
	"strings"
	"time"
)

// State is the engine's position in the call. The set is closed; transitions
// happen only inside the per-turn protocol.
type State string

const (
	StateGreeting   State = "greeting"
	StateListening  State = "listening"
	StateMatching   State = "matching"
	StateResolving  State = "resolving"
	StateEscalating State = "escalating"
	StateClosing    State = "closing"
	StateClosed     State = "closed"
)

// ErrLogicViolation marks a broken engine invariant (cursor out of range,
// transition from Closed). The session is logged and closed, never allowed to
// keep running with corrupt state.
var ErrLogicViolation = errors.New("session logic violation")

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerCaller Speaker = "caller"
	SpeakerAgent  Speaker = "agent"
	SpeakerSystem Speaker = "system"
)

// TurnEntry is one line of the call's turn history. Interrupted marks an
// agent turn that was cut short by a barge-in; Text then holds only the
// prefix actually delivered.
type TurnEntry struct {
	Speaker     Speaker
	Text        string
	At          time.Time
	Interrupted bool
}

// reply is the deterministic interpretation of a caller utterance while a
// resolution is being delivered.
type reply int

const (
	replyOther reply = iota
	replyConfirm
	replyReject
	replyResolved
)

var (
	resolvedSignals = []string{
		"its working now", "working now", "its printing", "it printed",
		"problem solved", "its fixed", "that fixed it", "all good now",
	}
	rejectSignals = []string{
		"still broken", "not working", "didnt work", "did not work",
		"still not", "same problem", "nothing happened", "didnt help",
		"no luck", "nope", "no",
	}
	confirmSignals = []string{
		"okay", "ok", "done", "yes", "yep", "yeah", "sure", "got it",
		"alright", "finished", "ready", "did it", "did that", "next",
		"go ahead", "whats next", "that worked",
	}
	goodbyeSignals = []string{
		"goodbye", "bye", "bye bye", "see you", "thats all", "thats it",
		"have a good day", "take care", "talk to you later", "im done",
		"nothing else", "no thats all",
	}
)

// interpretReply classifies a caller utterance during Resolving. Resolution
// and rejection signals win over bare confirmations so "yes but it's still
// broken" re-offers the step instead of advancing.
func interpretReply(utterance string) reply {
	norm := normalize(utterance)
	switch {
	case hasAny(norm, resolvedSignals):
		return replyResolved
	case hasAny(norm, rejectSignals):
		return replyReject
	case hasAny(norm, confirmSignals):
		return replyConfirm
	default:
		return replyOther
	}
}

// detectGoodbye reports whether the caller is wrapping up the call.
func detectGoodbye(utterance string) bool {
	return hasAny(normalize(utterance), goodbyeSignals)
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '\'':
			// drop so "didn't" matches "didnt"
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
