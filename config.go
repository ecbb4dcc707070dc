package goGuard

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config is the complete engine configuration. Build one with
// [DefaultConfig] or [LoadConfig] and treat it as immutable afterwards.
type Config struct {
	Auth      AuthConfig      `yaml:"auth"`
	CSRF      CSRFConfig      `yaml:"csrf"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Session   SessionConfig   `yaml:"session"`
	Token     TokenConfig     `yaml:"token"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Server    ServerConfig    `yaml:"server"`
}

/*
====================================
GUARD CONFIG
====================================
*/

// AuthConfig controls identity resolution and the auth/guest redirects.
type AuthConfig struct {
	// SessionKey is where Engine.Login stores the JSON identity.
	SessionKey string `yaml:"session_key"`
	// TokenField is the query or form field read when no Authorization header is sent.
	TokenField string `yaml:"token_field"`
	LoginPath  string `yaml:"login_path"`
	HomePath   string `yaml:"home_path"`
}

// CSRFConfig controls the CSRF guard.
type CSRFConfig struct {
	SessionKey   string   `yaml:"session_key"`
	FieldName    string   `yaml:"field_name"`
	FlashKey     string   `yaml:"flash_key"`
	FlashMessage string   `yaml:"flash_message"`
	FallbackPath string   `yaml:"fallback_path"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	Except       []string `yaml:"except"`
}

// RateLimitConfig bounds requests per (client address, path) per window.
type RateLimitConfig struct {
	MaxAttempts  int `yaml:"max_attempts"`
	DecaySeconds int `yaml:"decay_seconds"`
	// KeyPrefix namespaces counter keys. Empty inherits the engine default.
	KeyPrefix string `yaml:"key_prefix"`
	// TrustForwardedFor keys clients by the first X-Forwarded-For entry.
	// Enable only behind a proxy that overwrites the header.
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`
}

// Decay returns the window as a duration.
func (c RateLimitConfig) Decay() time.Duration {
	return time.Duration(c.DecaySeconds) * time.Second
}

/*
====================================
STORE CONFIG
====================================
*/

// SessionConfig controls session persistence and the session cookie.
type SessionConfig struct {
	// Store is "redis" or "memory".
	Store        string        `yaml:"store"`
	RedisPrefix  string        `yaml:"redis_prefix"`
	Lifetime     time.Duration `yaml:"lifetime"`
	CookieName   string        `yaml:"cookie_name"`
	CookiePath   string        `yaml:"cookie_path"`
	CookieDomain string        `yaml:"cookie_domain"`
	Secure       bool          `yaml:"secure"`
	HTTPOnly     bool          `yaml:"http_only"`
	// SameSite is "lax", "strict" or "none".
	SameSite string `yaml:"same_site"`
}

// SameSiteMode maps SameSite to its net/http value.
func (c SessionConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// TokenConfig selects and configures the bearer token store.
type TokenConfig struct {
	// Store is "redis", "postgres", "jwt" or "memory".
	Store       string        `yaml:"store"`
	RedisPrefix string        `yaml:"redis_prefix"`
	DefaultTTL  time.Duration `yaml:"default_ttl"`
	JWT         JWTConfig     `yaml:"jwt"`
}

// JWTConfig configures signed bearer tokens.
type JWTConfig struct {
	// SigningMethod is "hs256" or "ed25519".
	SigningMethod  string        `yaml:"signing_method"`
	Secret         string        `yaml:"secret"`
	PrivateKeyFile string        `yaml:"private_key_file"`
	PublicKeyFile  string        `yaml:"public_key_file"`
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"`
	Leeway         time.Duration `yaml:"leeway"`
	KeyID          string        `yaml:"key_id"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// CachePrefix namespaces rate-limit counters and other cache keys.
	CachePrefix string `yaml:"cache_prefix"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool   `yaml:"enabled"`
	EnableLatencyHistograms bool   `yaml:"enable_latency_histograms"`
	Path                    string `yaml:"path"`
}

// ServerConfig is read by the demo binary only.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration usable with in-process stores.
func DefaultConfig() Config {
	return Config{
		Auth: AuthConfig{
			SessionKey: "auth.identity",
			TokenField: "api_token",
			LoginPath:  "/login",
			HomePath:   "/home",
		},
		CSRF: CSRFConfig{
			SessionKey:   "_token",
			FieldName:    "_token",
			FlashKey:     "error",
			FlashMessage: "The page expired, please try again.",
			FallbackPath: "/",
			MaxBodyBytes: 1 << 20,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:  60,
			DecaySeconds: 60,
			KeyPrefix:    "rl:",
		},
		Session: SessionConfig{
			Store:       "memory",
			RedisPrefix: "sess",
			Lifetime:    2 * time.Hour,
			CookieName:  "goguard_session",
			CookiePath:  "/",
			Secure:      false,
			HTTPOnly:    true,
			SameSite:    "lax",
		},
		Token: TokenConfig{
			Store:       "memory",
			RedisPrefix: "tok",
			DefaultTTL:  24 * time.Hour,
			JWT: JWTConfig{
				SigningMethod: "hs256",
				Issuer:        "goguard",
			},
		},
		Redis: RedisConfig{
			Addr:         "127.0.0.1:6379",
			PoolSize:     20,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			CachePrefix:  "goguard",
		},
		Postgres: PostgresConfig{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: 5 * time.Minute,
			MigrateOnStart:  true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
			Path:                    "/metrics",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.CSRF.Except != nil {
		out.CSRF.Except = append([]string(nil), cfg.CSRF.Except...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Auth
	if c.Auth.SessionKey == "" {
		return errors.New("Auth SessionKey must not be empty")
	}
	if !isLocalPath(c.Auth.LoginPath) {
		return errors.New("Auth LoginPath must be an absolute local path")
	}
	if !isLocalPath(c.Auth.HomePath) {
		return errors.New("Auth HomePath must be an absolute local path")
	}

	// CSRF
	if c.CSRF.SessionKey == "" || c.CSRF.FieldName == "" {
		return errors.New("CSRF SessionKey and FieldName must not be empty")
	}
	if c.CSRF.SessionKey == c.Auth.SessionKey {
		return errors.New("CSRF SessionKey must differ from Auth SessionKey")
	}
	if c.CSRF.FlashKey == "" {
		return errors.New("CSRF FlashKey must not be empty")
	}
	if !isLocalPath(c.CSRF.FallbackPath) {
		return errors.New("CSRF FallbackPath must be an absolute local path")
	}
	if c.CSRF.MaxBodyBytes <= 0 {
		return errors.New("CSRF MaxBodyBytes must be > 0")
	}
	for _, p := range c.CSRF.Except {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("CSRF Except entry %q must start with /", p)
		}
	}

	// Rate limit
	if err := c.RateLimit.validate(); err != nil {
		return err
	}

	// Session
	switch c.Session.Store {
	case "redis", "memory":
	default:
		return errors.New("Session Store must be 'redis' or 'memory'")
	}
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if c.Session.CookieName == "" {
		return errors.New("Session CookieName must not be empty")
	}
	switch strings.ToLower(c.Session.SameSite) {
	case "lax", "strict":
	case "none":
		if !c.Session.Secure {
			return errors.New("Session SameSite 'none' requires Secure")
		}
	default:
		return errors.New("Session SameSite must be 'lax', 'strict' or 'none'")
	}

	// Token
	switch c.Token.Store {
	case "redis", "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("Postgres DSN is required when Token Store is 'postgres'")
		}
	case "jwt":
		if err := c.Token.JWT.validate(); err != nil {
			return err
		}
	default:
		return errors.New("Token Store must be 'redis', 'postgres', 'jwt' or 'memory'")
	}
	if c.Token.DefaultTTL <= 0 {
		return errors.New("Token DefaultTTL must be > 0")
	}

	// Redis
	if (c.Session.Store == "redis" || c.Token.Store == "redis") && c.Redis.Addr == "" {
		return errors.New("Redis Addr is required by a redis-backed store")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func (c RateLimitConfig) validate() error {
	if c.MaxAttempts <= 0 {
		return errors.New("RateLimit MaxAttempts must be > 0")
	}
	if c.DecaySeconds <= 0 {
		return errors.New("RateLimit DecaySeconds must be > 0")
	}
	return nil
}

func (c JWTConfig) validate() error {
	switch strings.ToLower(c.SigningMethod) {
	case "hs256":
		if len(c.Secret) < 32 {
			return errors.New("Token JWT hs256 Secret must be at least 32 bytes")
		}
	case "ed25519":
		if c.PublicKeyFile == "" {
			return errors.New("Token JWT ed25519 requires PublicKeyFile")
		}
	default:
		return errors.New("Token JWT SigningMethod must be 'hs256' or 'ed25519'")
	}
	if c.Leeway < 0 || c.Leeway > 2*time.Minute {
		return errors.New("Token JWT Leeway must be between 0 and 2m")
	}
	return nil
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//")
}
