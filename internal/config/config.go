package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. Thresholds and timeouts are tunable:
// the defaults below match observed behavior but are not load-bearing.
type Config struct {
	HTTPAddress string

	// Catalog
	CatalogPath string // optional JSON file; empty = embedded default catalog

	// Matcher
	MatchThreshold float64

	// AI fallback (Anthropic messages API)
	AnthropicKey   string
	AnthropicModel string
	AITimeout      time.Duration
	AIMaxAttempts  int

	// Engine pacing
	IdleTimeout    time.Duration // closing-state idle window before force close
	StepRetryLimit int           // consecutive rejections of one step before escalating

	// Cooperation buckets for tone adaptation
	CoopLowCutoff  float64
	CoopHighCutoff float64

	// Auth token for the WebSocket call endpoint (empty = open)
	CallAuthToken string

	// Twilio webhook signature validation (empty = validation skipped)
	TwilioAuthToken string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	if anthropicKey == "" {
		log.Println("Warning: ANTHROPIC_API_KEY not set - AI fallback disabled, catalog-only mode")
	}
	anthropicModel := os.Getenv("ANTHROPIC_MODEL")
	if anthropicModel == "" {
		anthropicModel = "claude-3-5-haiku-latest"
	}

	cfg := Config{
		HTTPAddress:    addr,
		CatalogPath:    os.Getenv("CATALOG_PATH"),
		MatchThreshold: envFloat("MATCH_THRESHOLD", 0.8),
		AnthropicKey:   anthropicKey,
		AnthropicModel: anthropicModel,
		AITimeout:      envDuration("AI_TIMEOUT", 5*time.Second),
		AIMaxAttempts:  envInt("AI_MAX_ATTEMPTS", 2),
		IdleTimeout:    envDuration("IDLE_TIMEOUT", 20*time.Second),
		StepRetryLimit: envInt("STEP_RETRY_LIMIT", 1),
		CoopLowCutoff:  envFloat("COOP_LOW_CUTOFF", 40),
		CoopHighCutoff: envFloat("COOP_HIGH_CUTOFF", 70),
		CallAuthToken:  os.Getenv("CALL_AUTH_TOKEN"),

		TwilioAuthToken: os.Getenv("TWILIO_AUTH_TOKEN"),
	}

	log.Printf("config: HTTP_ADDRESS=%s MATCH_THRESHOLD=%.2f AI_TIMEOUT=%s", cfg.HTTPAddress, cfg.MatchThreshold, cfg.AITimeout)
	return cfg
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %v", key, v, def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %v", key, v, def)
		return def
	}
	return d
}
