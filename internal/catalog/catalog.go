// Package catalog holds the printer issue knowledge base: a static set of
// known issues, each with trigger phrases and an ordered resolution script.
// The set is immutable once loaded; Reload swaps the whole set atomically so
// concurrent sessions never observe a partially-loaded catalog.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

// ErrLoad wraps any failure to read or parse a catalog source.
var ErrLoad = errors.New("catalog load failed")

// Severity tags how disruptive an issue is for the store.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Issue is one known printer fault with its resolution script.
// Issues are immutable after load.
type Issue struct {
	ID        string   `json:"id"`
	Triggers  []string `json:"triggers"`
	Summary   string   `json:"summary"`
	Steps     []string `json:"steps"`
	Severity  Severity `json:"severity,omitempty"`
	KBA       string   `json:"kba,omitempty"`
	Equipment string   `json:"equipment,omitempty"`
}

// Catalog is an atomically-swappable issue set. The zero value is unusable;
// construct with Load or New.
type Catalog struct {
	issues atomic.Value // []Issue
}

// New wraps an already-validated issue list.
func New(issues []Issue) *Catalog {
	c := &Catalog{}
	c.issues.Store(issues)
	return c
}

// Load builds a catalog from the JSON file at path, or from the embedded
// default issue set when path is empty.
func Load(path string) (*Catalog, error) {
	issues, err := read(path)
	if err != nil {
		return nil, err
	}
	return New(issues), nil
}

// Reload re-reads the source and swaps the issue set wholesale. Concurrent
// readers see either the old set or the new one, never a mix.
func (c *Catalog) Reload(path string) error {
	issues, err := read(path)
	if err != nil {
		return err
	}
	c.issues.Store(issues)
	return nil
}

// All returns the current issue set. Callers must treat the slice as read-only.
func (c *Catalog) All() []Issue {
	return c.issues.Load().([]Issue)
}

// Len reports the number of issues in the current set.
func (c *Catalog) Len() int { return len(c.All()) }

// ByID returns the issue with the given id, or nil.
func (c *Catalog) ByID(id string) *Issue {
	for i := range c.All() {
		if c.All()[i].ID == id {
			iss := c.All()[i]
			return &iss
		}
	}
	return nil
}

func read(path string) ([]Issue, error) {
	if path == "" {
		return defaultIssues(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	var issues []Issue
	if err := json.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrLoad, path, err)
	}
	if err := validate(issues); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return issues, nil
}

func validate(issues []Issue) error {
	if len(issues) == 0 {
		return errors.New("catalog is empty")
	}
	seen := make(map[string]bool, len(issues))
	for i, iss := range issues {
		if iss.ID == "" {
			return fmt.Errorf("issue %d has no id", i)
		}
		if seen[iss.ID] {
			return fmt.Errorf("duplicate issue id %q", iss.ID)
		}
		seen[iss.ID] = true
		if len(iss.Triggers) == 0 {
			return fmt.Errorf("issue %q has no triggers", iss.ID)
		}
		if len(iss.Steps) == 0 {
			return fmt.Errorf("issue %q has no steps", iss.ID)
		}
	}
	return nil
}
