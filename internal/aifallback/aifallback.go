// Package aifallback wraps the external language-model analysis service used
// when catalog matching fails. Failures never escape the adapter: timeouts,
// transport errors and missing configuration all degrade to an unusable
// Analysis, and the session decides how to proceed without it.
package aifallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// ErrUnavailable marks a failed or unconfigured analysis attempt. It is
// internal to the adapter boundary; callers only see Analysis.Usable.
var ErrUnavailable = errors.New("ai analysis unavailable")

// Turn is one prior conversation turn passed as context.
type Turn struct {
	Speaker string
	Text    string
}

// Analysis is the adapter's result. When Usable is false the other fields are
// empty and the caller must treat the result as "no analysis".
type Analysis struct {
	Diagnosis string
	Steps     []string
	Usable    bool
}

// Analyzer is the engine-facing contract.
type Analyzer interface {
	Analyze(ctx context.Context, utterance string, history []Turn) Analysis
}

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	apiVersion      = "2023-06-01"
	maxTokens       = 512
)

// Client calls the Anthropic messages API. An empty APIKey makes the client
// inert: every Analyze returns unusable immediately with no network I/O.
type Client struct {
	HTTPClient  *http.Client
	APIKey      string
	Model       string
	Endpoint    string
	Timeout     time.Duration
	MaxAttempts int

	log *logrus.Entry
}

func NewClient(apiKey, model string, timeout time.Duration, maxAttempts int, log *logrus.Entry) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		HTTPClient:  &http.Client{Timeout: timeout},
		APIKey:      apiKey,
		Model:       model,
		Endpoint:    defaultEndpoint,
		Timeout:     timeout,
		MaxAttempts: maxAttempts,
		log:         log,
	}
}

// Configured reports whether the client has a credential.
func (c *Client) Configured() bool { return c.APIKey != "" }

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Analyze asks the model for a diagnosis and suggested steps. The whole call,
// retries included, is bounded by the configured timeout.
func (c *Client) Analyze(ctx context.Context, utterance string, history []Turn) Analysis {
	if !c.Configured() {
		return Analysis{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var raw string
	operation := func() error {
		text, err := c.complete(ctx, buildPrompt(utterance, history))
		if err != nil {
			return err
		}
		raw = text
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.MaxAttempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.log.WithField("error", err.Error()).Warn("ai fallback unavailable")
		return Analysis{}
	}

	diagnosis, steps := parseAnalysis(raw)
	if diagnosis == "" && len(steps) == 0 {
		return Analysis{}
	}
	return Analysis{Diagnosis: diagnosis, Steps: steps, Usable: true}
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(messagesRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, string(b))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// auth/validation problems will not heal on retry
			return "", backoff.Permanent(err)
		}
		return "", err
	}
	var mr messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	var b strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return b.String(), nil
}

func buildPrompt(utterance string, history []Turn) string {
	var b strings.Builder
	b.WriteString("You are a printer support specialist. A caller has an issue that is not in the knowledge base.\n\n")
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range history {
			b.WriteString("[")
			b.WriteString(strings.ToUpper(t.Speaker))
			b.WriteString("] ")
			b.WriteString(t.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Caller's description: ")
	b.WriteString(utterance)
	b.WriteString("\n\nGive a one-sentence likely diagnosis on the first line, then numbered troubleshooting steps, one per line. ")
	b.WriteString("Each step must be a short imperative instruction a caller can follow over the phone. Be concise and practical.")
	return b.String()
}

// parseAnalysis splits the model output into a diagnosis line and the
// numbered/bulleted steps that follow it.
func parseAnalysis(raw string) (string, []string) {
	var diagnosis string
	var steps []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if stripped, ok := stripListMarker(line); ok {
			steps = append(steps, stripped)
			continue
		}
		if diagnosis == "" {
			diagnosis = line
		}
	}
	return diagnosis, steps
}

func stripListMarker(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), true
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) {
		return "", false
	}
	if line[i] == '.' || line[i] == ')' {
		return strings.TrimSpace(line[i+1:]), true
	}
	return "", false
}
