package goGuard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MrEthical07/goGuard/cache"
	"github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/session"
	"github.com/MrEthical07/goGuard/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Stores that are not supplied explicitly are
// created from the configuration: Redis-backed ones from the client given to
// WithRedis, in-memory ones otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	sessions session.Store
	tokens   token.Store
	cache    cache.Cache

	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// NewBuilder starts from DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used by every redis-backed store and by the
// rate-limit cache.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithSessionStore(s session.Store) *Builder {
	b.sessions = s
	return b
}

func (b *Builder) WithTokenStore(s token.Store) *Builder {
	b.tokens = s
	return b
}

func (b *Builder) WithCache(c cache.Cache) *Builder {
	b.cache = c
	return b
}

func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink enables auditing into sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	if enabled {
		b.config.Metrics.Enabled = true
	}
	return b
}

// Build is BuildContext with a background context.
func (b *Builder) Build() (*Engine, error) {
	return b.BuildContext(context.Background())
}

// BuildContext validates the configuration and creates missing stores. ctx
// bounds the PostgreSQL connection attempt and migrations.
func (b *Builder) BuildContext(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{config: cfg}

	// -------- SESSION STORE --------
	engine.sessions = b.sessions
	if engine.sessions == nil {
		switch cfg.Session.Store {
		case "redis":
			if b.redis == nil {
				return nil, fmt.Errorf("%w: session store 'redis' requires a redis client", ErrMissingDependency)
			}
			engine.sessions = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
		default:
			engine.sessions = session.NewMemoryStore()
		}
	}

	// -------- TOKEN STORE --------
	engine.tokens = b.tokens
	if engine.tokens == nil {
		tokens, closer, err := b.buildTokenStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		engine.tokens = tokens
		if closer != nil {
			engine.closers = append(engine.closers, closer)
		}
	}

	// -------- CACHE --------
	engine.cache = b.cache
	if engine.cache == nil {
		if b.redis != nil {
			engine.cache = cache.NewRedisCache(b.redis, cfg.Redis.CachePrefix)
		} else {
			engine.cache = cache.NewMemoryCache()
		}
	}

	// -------- OBSERVABILITY --------
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.sinkOrDefault(logger))
	engine.obs = &observer{logger: logger, metrics: engine.metrics, audit: engine.audit}

	// -------- GUARDS --------
	engine.auth = NewAuthGuard(cfg.Auth, engine.tokens)
	engine.auth.obs = engine.obs
	engine.csrf = NewCSRFGuard(cfg.CSRF)
	engine.csrf.obs = engine.obs

	b.built = true
	return engine, nil
}

func (b *Builder) sinkOrDefault(logger *slog.Logger) AuditSink {
	if b.auditSink != nil {
		return b.auditSink
	}
	return audit.NewSlogSink(logger)
}

func (b *Builder) buildTokenStore(ctx context.Context, cfg Config) (token.Store, func(), error) {
	switch cfg.Token.Store {
	case "redis":
		if b.redis == nil {
			return nil, nil, fmt.Errorf("%w: token store 'redis' requires a redis client", ErrMissingDependency)
		}
		return token.NewRedisStore(b.redis, cfg.Token.RedisPrefix), nil, nil

	case "postgres":
		pg, err := token.NewPostgresStore(ctx, token.PostgresConfig{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MigrateOnStart:  cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening token store: %w", err)
		}
		return pg, pg.Close, nil

	case "jwt":
		jc, err := jwtStoreConfig(cfg.Token.JWT)
		if err != nil {
			return nil, nil, err
		}
		s, err := token.NewJWTStore(jc)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	default:
		return token.NewMemoryStore(), nil, nil
	}
}

func jwtStoreConfig(c JWTConfig) (token.JWTConfig, error) {
	out := token.JWTConfig{
		SigningMethod: token.SigningMethod(strings.ToLower(c.SigningMethod)),
		Issuer:        c.Issuer,
		Audience:      c.Audience,
		Leeway:        c.Leeway,
		KeyID:         c.KeyID,
	}
	if out.SigningMethod == token.MethodHS256 {
		out.PrivateKey = []byte(c.Secret)
		return out, nil
	}

	if c.PrivateKeyFile != "" {
		key, err := os.ReadFile(c.PrivateKeyFile)
		if err != nil {
			return token.JWTConfig{}, fmt.Errorf("reading JWT private key: %w", err)
		}
		out.PrivateKey = key
	}
	key, err := os.ReadFile(c.PublicKeyFile)
	if err != nil {
		return token.JWTConfig{}, fmt.Errorf("reading JWT public key: %w", err)
	}
	out.PublicKey = key
	return out, nil
}
