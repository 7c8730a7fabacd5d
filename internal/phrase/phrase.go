// Package phrase selects agent wording by cooperation level. Selection is a
// pure function of (pace bucket, content): the same inputs always produce the
// same utterance, so tone never changes the underlying resolution content.
package phrase

import (
	"fmt"
	"hash/fnv"
)

// Pace is the delivery style bucket derived from the cooperation estimate.
type Pace string

const (
	PaceEfficient Pace = "efficient"
	PaceBalanced  Pace = "balanced"
	PacePatient   Pace = "patient"
)

// PaceFor buckets a cooperation estimate using the configured cutoffs.
func PaceFor(coop, lowCutoff, highCutoff float64) Pace {
	switch {
	case coop < lowCutoff:
		return PacePatient
	case coop > highCutoff:
		return PaceEfficient
	default:
		return PaceBalanced
	}
}

var acknowledgments = map[Pace][]string{
	PaceEfficient: {"Okay.", "Got it.", "Perfect."},
	PaceBalanced:  {"Okay, I understand.", "Got it, thanks.", "Perfect, thank you."},
	PacePatient: {
		"Okay, I totally understand.",
		"I hear you, and I appreciate your patience.",
		"Thank you so much for working with me on this.",
	},
}

var encouragements = map[Pace][]string{
	PaceEfficient: {"Good.", "Nice."},
	PaceBalanced:  {"Good job.", "You're doing great."},
	PacePatient: {
		"You're doing great.",
		"Perfect, you're doing exactly what we need.",
		"I really appreciate your patience with this.",
	},
}

var empathy = map[Pace][]string{
	PaceEfficient: {},
	PaceBalanced:  {"I understand this can be frustrating."},
	PacePatient: {
		"I know this is frustrating, and I really appreciate your patience.",
		"I understand how inconvenient this is, especially when you're busy.",
	},
}

// pick chooses deterministically from options, keyed on content.
func pick(options []string, key string) string {
	if len(options) == 0 {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return options[int(h.Sum32())%len(options)]
}

// Greeting opens the call.
func Greeting(p Pace) string {
	switch p {
	case PaceEfficient:
		return "Printer support. What seems to be the problem?"
	case PacePatient:
		return "Hi, thank you for calling printer support. Take your time and tell me what's going on with the printer."
	default:
		return "Hi, you've reached printer support. Can you tell me what's happening with the printer?"
	}
}

// Step wraps one resolution instruction. first marks the opening instruction
// of a resolution, which gets a lead-in instead of an encouragement.
func Step(p Pace, instruction string, first bool) string {
	if first {
		switch p {
		case PaceEfficient:
			return "Let's fix that. First: " + instruction
		case PacePatient:
			return "I can help with that, and we'll go one step at a time. First: " + instruction
		default:
			return "Okay, I can help with that. First: " + instruction
		}
	}
	enc := pick(encouragements[p], instruction)
	if enc == "" {
		return "Next: " + instruction
	}
	return enc + " Next: " + instruction
}

// RepeatStep re-offers the same instruction after a rejection.
func RepeatStep(p Pace, instruction string) string {
	emp := pick(empathy[p], instruction)
	if emp == "" {
		return "Let's try that once more: " + instruction
	}
	return emp + " Let's try that once more: " + instruction
}

// Clarify asks the caller to restate the step outcome.
func Clarify(p Pace, instruction string) string {
	ack := pick(acknowledgments[p], instruction)
	return ack + " Just to check, were you able to do this: " + instruction
}

// MoreDetail asks for a better symptom description while listening.
func MoreDetail(p Pace) string {
	switch p {
	case PaceEfficient:
		return "Can you describe the problem in a bit more detail? Any error lights, sounds, or messages?"
	case PacePatient:
		return "No rush at all. Could you tell me a little more about what the printer is doing? For example any lights, sounds, or error messages."
	default:
		return "Could you tell me a bit more about what the printer is doing? Any lights, sounds, or error messages?"
	}
}

// Escalating tells the caller we are checking with the analyzer.
func Escalating(p Pace) string {
	switch p {
	case PaceEfficient:
		return "One moment while I look into that."
	case PacePatient:
		return "Thanks for bearing with me. Give me just a moment while I look into that for you."
	default:
		return "Let me check on that for you, one moment."
	}
}

// Closing ends the call. escalated switches to the human-handoff variant.
func Closing(p Pace, escalated bool) string {
	if escalated {
		switch p {
		case PaceEfficient:
			return "I couldn't resolve this remotely, so I'm escalating to a technician who will follow up. Anything else?"
		case PacePatient:
			return "I'm sorry we couldn't get this fixed together today. I'm escalating this to a technician who will follow up with you shortly. Is there anything else I can help with?"
		default:
			return "I wasn't able to resolve this remotely, so I'm escalating it to a technician who will follow up with you. Anything else I can help with?"
		}
	}
	switch p {
	case PaceEfficient:
		return "That should do it. Anything else?"
	case PacePatient:
		return "That should take care of it. Thank you so much for your patience today. Is there anything else I can help you with?"
	default:
		return "That should take care of it. Is there anything else I can help you with?"
	}
}

// Goodbye is the final turn before hanging up.
func Goodbye(p Pace) string {
	switch p {
	case PaceEfficient:
		return "Thanks for calling. Goodbye."
	case PacePatient:
		return "Thank you again for your patience. Have a wonderful day. Goodbye."
	default:
		return "Thanks for calling printer support. Goodbye."
	}
}

// StepNumber formats a progress cue for multi-step resolutions.
func StepNumber(n, total int) string {
	return fmt.Sprintf("Step %d of %d.", n, total)
}
