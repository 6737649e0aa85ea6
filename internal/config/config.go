package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/docmacro/internal/cache"
	"github.com/dgallion1/docmacro/internal/macro"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Paths
	BaseDir      string
	CacheDir     string
	Bibliography string

	// Expansion
	MaxIncludeDepth int

	// External renderers
	DiagramCommand []string
	MathCommand    []string
	RenderTimeout  time.Duration
	StatsWindow    time.Duration

	// Upload limits
	MaxUploadBytes int64

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCMACRO_API_KEY"),

		BaseDir:      envOr("DOCMACRO_BASE_DIR", "."),
		CacheDir:     envOr("DOCMACRO_CACHE_DIR", cache.DefaultDir),
		Bibliography: os.Getenv("DOCMACRO_BIBLIOGRAPHY"),

		MaxIncludeDepth: envInt("DOCMACRO_MAX_INCLUDE_DEPTH", macro.DefaultMaxIncludeDepth),

		DiagramCommand: envFields("DOCMACRO_DIAGRAM_COMMAND", "dot -Tsvg"),
		MathCommand:    envFields("DOCMACRO_MATH_COMMAND", "katex"),
		RenderTimeout:  envDuration("DOCMACRO_RENDER_TIMEOUT", 30*time.Second),
		StatsWindow:    envDuration("DOCMACRO_STATS_WINDOW", 1*time.Hour),

		MaxUploadBytes: envInt64("DOCMACRO_MAX_UPLOAD_BYTES", 10485760), // 10MB

		PDFFallbackPdftotext: envBool("DOCMACRO_PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel:  envOr("DOCMACRO_LOG_LEVEL", "info"),
		LogFormat: envOr("DOCMACRO_LOG_FORMAT", "text"),
	}

	if cfg.MaxIncludeDepth <= 0 {
		cfg.MaxIncludeDepth = macro.DefaultMaxIncludeDepth
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 30 * time.Second
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}

	return cfg
}

func (c Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("DOCMACRO_BASE_DIR must not be empty")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("DOCMACRO_CACHE_DIR must not be empty")
	}
	if len(c.DiagramCommand) == 0 {
		return fmt.Errorf("DOCMACRO_DIAGRAM_COMMAND must not be empty")
	}
	if len(c.MathCommand) == 0 {
		return fmt.Errorf("DOCMACRO_MATH_COMMAND must not be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("DOCMACRO_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envFields splits a command line on whitespace. Quoting is not supported.
func envFields(key, fallback string) []string {
	return strings.Fields(envOr(key, fallback))
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
