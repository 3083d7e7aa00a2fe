package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/sanitize"
)

const (
	defaultMaxRecallResults = 8
	defaultMinCaptureLength = 10
	maxRecallResultsCap     = 20
	minCaptureLengthCap     = 200
)

type Config struct {
	Port             int
	BaseURL          string
	APIKey           string
	AutoIngest       bool
	AutoRecall       bool
	MaxRecallResults int
	CaptureMode      sanitize.Mode
	MinCaptureLength int
	Debug            bool
	NatsURL          string
	NatsToken        string
	SubjectPrefix    string
	DatabaseURL      string
	APIToken         string
	LogLevel         string
}

func Load() Config {
	cfg := Config{
		Port:             envInt("MEMORY_PORT", 8790),
		BaseURL:          envStr("LIGHTRAG_BASE_URL", ""),
		APIKey:           envStr("LIGHTRAG_API_KEY", ""),
		AutoIngest:       envBool("MEMORY_AUTO_INGEST", true),
		AutoRecall:       envBool("MEMORY_AUTO_RECALL", true),
		MaxRecallResults: envInt("MEMORY_MAX_RECALL_RESULTS", defaultMaxRecallResults),
		CaptureMode:      sanitize.ParseMode(envStr("MEMORY_CAPTURE_MODE", string(sanitize.ModeAll))),
		MinCaptureLength: envInt("MEMORY_MIN_CAPTURE_LENGTH", defaultMinCaptureLength),
		Debug:            envBool("MEMORY_DEBUG", false),
		NatsURL:          envStr("NATS_URL", "nats://127.0.0.1:4222"),
		NatsToken:        envStr("NATS_TOKEN", ""),
		SubjectPrefix:    envStr("MEMORY_SUBJECT_PREFIX", "openclaw.memory"),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		APIToken:         envStr("MEMORY_API_TOKEN", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
	}
	cfg.Normalize()
	return cfg
}

// Normalize trims URLs and clamps numeric settings into their allowed ranges.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.SubjectPrefix = strings.Trim(strings.TrimSpace(c.SubjectPrefix), ".")
	c.MaxRecallResults = clamp(c.MaxRecallResults, 1, maxRecallResultsCap)
	c.MinCaptureLength = clamp(c.MinCaptureLength, 1, minCaptureLengthCap)
	if c.CaptureMode != sanitize.ModeEverything {
		c.CaptureMode = sanitize.ModeAll
	}
	if c.Debug {
		c.LogLevel = "debug"
	}
}

// Validate reports settings the service cannot start without.
func (c Config) Validate() error {
	if c.BaseURL == "" || c.APIKey == "" {
		return errors.New("LIGHTRAG_BASE_URL and LIGHTRAG_API_KEY are required")
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
