package session

import (
	"testing"
	"time"
)

func TestManager_TracksLiveSessions(t *testing.T) {
	m := NewManager()
	if m.Count() != 0 {
		t.Fatalf("fresh manager not empty")
	}

	s1, tr1, done1 := startSession(t, nil, Config{})
	s2, tr2, done2 := startSession(t, nil, Config{})
	m.Add(s1)
	m.Add(s2)

	if m.Count() != 2 {
		t.Fatalf("expected 2 live sessions, got %d", m.Count())
	}
	snaps := m.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	seen := map[string]bool{}
	for _, snap := range snaps {
		seen[snap.ID] = true
	}
	if !seen[s1.ID()] || !seen[s2.ID()] {
		t.Fatalf("snapshots missing a session: %+v", snaps)
	}

	m.Remove(s1.ID())
	if m.Count() != 1 {
		t.Fatalf("expected 1 after remove, got %d", m.Count())
	}

	m.CloseAll()
	for _, done := range []chan error{done2} {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("close-all never ended the session")
		}
	}
	if s2.Snapshot().State != StateClosed {
		t.Fatalf("expected closed, got %s", s2.Snapshot().State)
	}

	// s1 was removed from the manager but still runs; shut it down directly
	finish(t, tr1, done1)
	_ = tr2
}

func TestManager_RemoveUnknownIDIsNoop(t *testing.T) {
	m := NewManager()
	m.Remove("not-there")
	if m.Count() != 0 {
		t.Fatalf("expected empty manager")
	}
}
