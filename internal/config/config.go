package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Sign-in providers.
const (
	ProviderGoogle = "google"
	ProviderDev    = "dev"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout for pages and API (not the feed)

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile   string // optional, rotated JSON log file

	BaseURL string // public URL, used for OAuth callbacks and secure cookies

	Store      string // "redis" | "sqlite" | "memory"
	SQLitePath string // database file when Store == "sqlite"
	FeedBuffer int    // per-subscriber event queue length

	// Optional Homepage YAML file kept imported into one user's list
	ImportFile     string
	ImportUser     string        // user id, ex: "google:1234"
	ImportInterval time.Duration // 0 => import once at startup

	// Redis (optional unless Store == "redis"; enables the shared feed and revocation list)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Auth
	SessionSecret      string
	SessionTTL         time.Duration
	AuthProvider       string // "google" | "dev"
	GoogleClientID     string
	GoogleClientSecret string
	DevUserEmail       string

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict infra endpoints to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	CORSOrigins  []string // optional, origins allowed to call the JSON API
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	RateBurst    int      // per-IP burst
	RatePerMin   int      // per-IP sustained rate
}

// Load reads .env.local and .env (when present, without overriding the
// real environment) then builds the config. It panics on invalid setups.
func Load() *Config {
	loadDotenv(".env.local", ".env")

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MARKS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MARKS_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("MARKS_REQUEST_TIMEOUT", 15*time.Second),

		// Logging
		LogLevel:  getenv("MARKS_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKS_PRETTY_LOG", true),
		LogFile:   getenv("MARKS_LOG_FILE", ""),

		BaseURL: strings.TrimSuffix(getenv("MARKS_BASE_URL", "http://localhost:8080"), "/"),

		// Storage
		Store:      strings.ToLower(getenv("MARKS_STORE", StoreRedis)),
		SQLitePath: getenv("MARKS_SQLITE_PATH", "./data/smartmarks.db"),
		FeedBuffer: getenvInt("MARKS_FEED_BUFFER", 64),

		// Import
		ImportFile:     getenv("MARKS_IMPORT_FILE", ""),
		ImportUser:     getenv("MARKS_IMPORT_USER", ""),
		ImportInterval: mustDuration("MARKS_IMPORT_INTERVAL", 10*time.Minute),

		// Redis settings
		RedisAddr:             getenv("MARKS_REDIS_ADDR", ""),
		RedisUser:             getenv("MARKS_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("MARKS_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("MARKS_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("MARKS_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Auth
		SessionSecret:      requireEnv("MARKS_SESSION_SECRET"),
		SessionTTL:         mustDuration("MARKS_SESSION_TTL", 30*24*time.Hour),
		AuthProvider:       strings.ToLower(getenv("MARKS_AUTH_PROVIDER", ProviderGoogle)),
		GoogleClientID:     getenv("MARKS_GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("MARKS_GOOGLE_CLIENT_SECRET", ""),
		DevUserEmail:       getenv("MARKS_DEV_USER_EMAIL", "dev@localhost"),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MARKS_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("MARKS_ALLOWED_CIDRS", "")),
		CORSOrigins:  splitAndTrim(getenv("MARKS_CORS_ORIGINS", "")),
		TrustProxy:   mustBool("MARKS_TRUST_PROXY", false),
		RateBurst:    getenvInt("MARKS_RATE_BURST", 30),
		RatePerMin:   getenvInt("MARKS_RATE_PER_MIN", 120),
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.SessionSecret = "***REDACTED***"
		cfgCopy.GoogleClientSecret = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// RedisEnabled reports whether a Redis server is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// SecureCookies is true when the public URL is served over TLS.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

// CallbackURL is the OAuth redirect target.
func (c *Config) CallbackURL() string {
	return c.BaseURL + "/auth/callback"
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("MARKS_REDIS_ADDR is required when MARKS_STORE=%s", StoreRedis)
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("MARKS_SQLITE_PATH is required when MARKS_STORE=%s", StoreSQLite)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid MARKS_STORE %q (want redis, sqlite or memory)", c.Store)
	}

	if c.ImportFile != "" && c.ImportUser == "" {
		return fmt.Errorf("MARKS_IMPORT_USER is required when MARKS_IMPORT_FILE is set")
	}

	if c.RedisEnabled() && c.RedisPasswordRequired && c.RedisPassword == "" {
		return fmt.Errorf("MARKS_REDIS_PASSWORD is required when MARKS_REDIS_PASSWORD_REQUIRED=true")
	}

	switch c.AuthProvider {
	case ProviderGoogle:
		if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
			return fmt.Errorf("MARKS_GOOGLE_CLIENT_ID and MARKS_GOOGLE_CLIENT_SECRET are required for google sign-in")
		}
	case ProviderDev:
		if c.DevUserEmail == "" {
			return fmt.Errorf("MARKS_DEV_USER_EMAIL is required for dev sign-in")
		}
	default:
		return fmt.Errorf("invalid MARKS_AUTH_PROVIDER %q (want google or dev)", c.AuthProvider)
	}

	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid MARKS_BASE_URL %q: %w", c.BaseURL, err)
	}
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("MARKS_SESSION_SECRET must be at least 16 characters")
	}
	return nil
}

// helpers
func loadDotenv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("[WARN] failed to load %s: %v", f, err)
		}
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
