package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Proxy     ProxyConfig
	Booking   BookingConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth enables navigator.webdriver masking and related evasions.
	Stealth bool // default: true
}

// ProxyConfig controls the proxy pool.
type ProxyConfig struct {
	// Sources lists proxy-list URLs to fetch candidates from.
	Sources []string

	// ProbeURL is the target used to measure candidate latency.
	ProbeURL string // default: "https://wafid.com"

	// ProbeTimeout bounds a single health probe.
	ProbeTimeout time.Duration // default: 8s

	// ProbeConcurrency bounds how many candidates are probed at once.
	ProbeConcurrency int // default: 20

	// RefillThreshold is the minimum validated pool size maintained
	// before each attempt.
	RefillThreshold int // default: 5

	// DataDir is where the validated set is persisted (sqlite).
	// Empty disables persistence.
	DataDir string // default: "data"
}

// BookingConfig controls the booking flow itself.
type BookingConfig struct {
	// URL is the booking form entry point.
	URL string // default: "https://wafid.com/book-appointment/"

	// CaptureFragment selects which intercepted responses are recorded:
	// only exchanges whose URL contains this fragment.
	CaptureFragment string // default: "appointment"

	// CenterKeys are the payload fields checked, in order, for the
	// assigned center name.
	CenterKeys []string // default: ["center", "medical_center", "gcc_center"]

	// MaxAttempts is the default retry budget when the caller does not
	// supply one.
	MaxAttempts int // default: 30

	// AttemptTimeout bounds one full attempt (open + submit).
	AttemptTimeout time.Duration // default: 90s

	// RetryInterval seeds the exponential backoff between attempts.
	RetryInterval time.Duration // default: 2s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool // default: true
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// WebhookConfig controls outbound result notifications.
type WebhookConfig struct {
	URL    string // empty disables webhooks
	Secret string // HMAC signing key
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: envOr("WAFID_HOST", "0.0.0.0"),
			Port: envIntOr("WAFID_PORT", 8080),
			Mode: envOr("WAFID_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("WAFID_HEADLESS", true),
			NoSandbox:  envBoolOr("WAFID_NO_SANDBOX", false),
			BrowserBin: os.Getenv("WAFID_BROWSER_BIN"),
			Stealth:    envBoolOr("WAFID_STEALTH", true),
		},
		Proxy: ProxyConfig{
			Sources: envSliceOr("WAFID_PROXY_SOURCES", []string{
				"https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http",
				"https://free-proxy-list.net/",
			}),
			ProbeURL:         envOr("WAFID_PROBE_URL", "https://wafid.com"),
			ProbeTimeout:     envDurationOr("WAFID_PROBE_TIMEOUT", 8*time.Second),
			ProbeConcurrency: envIntOr("WAFID_PROBE_CONCURRENCY", 20),
			RefillThreshold:  envIntOr("WAFID_POOL_THRESHOLD", 5),
			DataDir:          envOr("WAFID_DATA_DIR", "data"),
		},
		Booking: BookingConfig{
			URL:             envOr("WAFID_BOOKING_URL", "https://wafid.com/book-appointment/"),
			CaptureFragment: envOr("WAFID_CAPTURE_FRAGMENT", "appointment"),
			CenterKeys: envSliceOr("WAFID_CENTER_KEYS", []string{
				"center", "medical_center", "gcc_center",
			}),
			MaxAttempts:    envIntOr("WAFID_MAX_ATTEMPTS", 30),
			AttemptTimeout: envDurationOr("WAFID_ATTEMPT_TIMEOUT", 90*time.Second),
			RetryInterval:  envDurationOr("WAFID_RETRY_INTERVAL", 2*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("WAFID_AUTH_ENABLED", true),
			APIKeys: envSliceOr("WAFID_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("WAFID_RATE_RPS", 5.0),
			Burst:             envIntOr("WAFID_RATE_BURST", 10),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("WAFID_WEBHOOK_URL"),
			Secret: os.Getenv("WAFID_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("WAFID_LOG_LEVEL", "info"),
			Format: envOr("WAFID_LOG_FORMAT", "json"),
		},
	}

	if err := ValidateBookingURL(cfg.Booking.URL); err != nil {
		return nil, fmt.Errorf("WAFID_BOOKING_URL: %w", err)
	}
	return cfg, nil
}

// ValidateBookingURL accepts only well-formed http/https URLs with a host.
func ValidateBookingURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty URL")
	}
	if strings.ContainsAny(raw, " \t") {
		return fmt.Errorf("URL contains whitespace: %q", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q (http/https only)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
