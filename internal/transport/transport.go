// Package transport defines the turn-stream contract between the dialogue
// engine and the telephony platform, plus a WebSocket implementation for
// platforms that bridge calls over a text stream.
package transport

import (
	"context"
	"errors"
	"strings"
)

// ErrClosed is returned once the call has ended. Any transport error is fatal
// to its session only; other sessions are unaffected.
var ErrClosed = errors.New("transport closed")

// Transport is the engine's view of one live call.
type Transport interface {
	// NextUtterance blocks until the caller's next transcribed utterance
	// arrives, the context is cancelled, or the call ends (ErrClosed).
	NextUtterance(ctx context.Context) (string, error)
	// Speak delivers text to the caller. It returns the prefix actually
	// delivered and whether delivery was cut short by a barge-in.
	Speak(ctx context.Context, text string) (spoken string, interrupted bool, err error)
	// OnInterrupt registers the barge-in callback. At most one is kept.
	OnInterrupt(fn func())
	// Terminate ends the call and releases the underlying connection.
	// It is idempotent.
	Terminate() error
}

// chunkText splits an utterance into sentence-like chunks so delivery can be
// truncated between sentences on barge-in. Split on '.', '?', '!' and
// newlines, retaining punctuation.
func chunkText(text string) []string {
	txt := strings.TrimSpace(text)
	if txt == "" {
		return nil
	}
	var chunks []string
	var b strings.Builder
	for _, r := range txt {
		switch r {
		case '.', '!', '?':
			b.WriteRune(r)
			chunk := strings.TrimSpace(b.String())
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			b.Reset()
		case '\n', '\r':
			chunk := strings.TrimSpace(b.String())
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	tail := strings.TrimSpace(b.String())
	if tail != "" {
		chunks = append(chunks, tail)
	}
	return chunks
}
