// ABOUTME: Configuration loader for the FastLearners BFF
// ABOUTME: Loads settings from .env files and environment variables with defaults

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUpstreamURL is the production FastLearners API base.
const DefaultUpstreamURL = "https://fastlearnersapp.com/api/v1"

type Config struct {
	// Server
	Port               string
	Env                string   // development, production
	CORSAllowedOrigins []string // allowed CORS origins (empty = block all cross-origin)
	CookieSecure       bool     // Set Secure flag on auth cookies (default: true in production)

	// Upstream API
	UpstreamURL      string
	UpstreamTimeout  int     // seconds, default client timeout for relayed calls
	UpstreamRPS      float64 // outbound requests per second (0 = unlimited)
	UpstreamBurst    int
	UpstreamAllProxy string // optional ssh+socks5://user@host:port?private-key=/path

	// Rate Limiting
	RateLimitEnabled bool // Enable rate limiting (default: true)
	RateLimitAuth    int  // Requests per minute for auth endpoints (default: 10)
	RateLimitUpload  int  // Requests per minute for upload endpoints (default: 10)
	RateLimitDefault int  // Requests per minute for all other endpoints (default: 300)

	// Caching
	SubjectCacheTTL int // seconds, default 300 (5 min)

	// Diagnostics
	DebugAuth bool // log upstream error bodies at debug level
}

// IsProduction reports whether the service runs with production cookie policy.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env.local and .env (if present) and then the process environment.
// Values already set in the environment win over values from the files.
func Load() (*Config, error) {
	loadDotEnv(".env.local", ".env")

	env := strings.ToLower(getEnv("ENV", "development"))

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                env,
		CORSAllowedOrigins: getEnvStringList("CORS_ALLOWED_ORIGINS"),
		CookieSecure:       getEnvBool("COOKIE_SECURE", env == "production"),

		UpstreamURL:      strings.TrimRight(ensureScheme(getEnv("UPSTREAM_API_URL", DefaultUpstreamURL)), "/"),
		UpstreamTimeout:  getEnvInt("UPSTREAM_TIMEOUT_SEC", 30),
		UpstreamRPS:      getEnvFloat("UPSTREAM_RPS", 0),
		UpstreamBurst:    getEnvInt("UPSTREAM_BURST", 20),
		UpstreamAllProxy: os.Getenv("UPSTREAM_ALL_PROXY"),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitAuth:    getEnvInt("RATE_LIMIT_AUTH", 10),
		RateLimitUpload:  getEnvInt("RATE_LIMIT_UPLOAD", 10),
		RateLimitDefault: getEnvInt("RATE_LIMIT_DEFAULT", 300),

		SubjectCacheTTL: getEnvInt("SUBJECT_CACHE_TTL", 300),

		DebugAuth: getEnvBool("DEBUG_AUTH", false),
	}

	u, err := url.Parse(cfg.UpstreamURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("UPSTREAM_API_URL is not a valid URL: %q", cfg.UpstreamURL)
	}

	if cfg.UpstreamTimeout < 1 {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT_SEC must be positive, got %d", cfg.UpstreamTimeout)
	}
	if cfg.UpstreamRPS < 0 {
		return nil, fmt.Errorf("UPSTREAM_RPS must not be negative, got %v", cfg.UpstreamRPS)
	}
	if cfg.SubjectCacheTTL < 1 {
		return nil, fmt.Errorf("SUBJECT_CACHE_TTL must be positive, got %d", cfg.SubjectCacheTTL)
	}

	// Validate rate limit values
	for _, rl := range []struct {
		name  string
		value int
	}{
		{"RATE_LIMIT_AUTH", cfg.RateLimitAuth},
		{"RATE_LIMIT_UPLOAD", cfg.RateLimitUpload},
		{"RATE_LIMIT_DEFAULT", cfg.RateLimitDefault},
	} {
		if rl.value < 1 || rl.value > 10000 {
			return nil, fmt.Errorf("%s must be between 1 and 10000, got %d", rl.name, rl.value)
		}
	}

	return cfg, nil
}

// UpstreamTimeoutDuration returns the default upstream client timeout.
func (c *Config) UpstreamTimeoutDuration() time.Duration {
	return time.Duration(c.UpstreamTimeout) * time.Second
}

// SubjectCacheTTLDuration returns the freshness window of the subject-status cache.
func (c *Config) SubjectCacheTTLDuration() time.Duration {
	return time.Duration(c.SubjectCacheTTL) * time.Second
}

// loadDotEnv loads each file that exists; missing files are not an error.
func loadDotEnv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvStringList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ensureScheme adds https:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}
