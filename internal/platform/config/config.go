// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selects the storage behind a component.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Server      Server
	Log         Log
	Catalogue   Catalogue
	Interpreter Interpreter
	Quota       Quota
	Cache       Cache
	Credential  Credential
	Redis       RedisConfig
	Postgres    Postgres
	Kafka       Kafka
	Auth        Auth
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

type Catalogue struct {
	Dir         string
	Concurrency int
}

// Interpreter configures the hosted language model.
type Interpreter struct {
	APIKey            string
	Endpoint          string
	PrimaryModel      string
	SecondaryModel    string
	MaxAttempts       int
	AttemptTimeout    time.Duration
	MaxConcurrent     int64
	RequestsPerSecond float64
	BreakerFailures   int
	BreakerCooldown   time.Duration
}

type Quota struct {
	Backend        Backend
	AccountLimit   int
	AnonymousLimit int
	// Timezone names the zone whose midnight resets counters.
	Timezone string
}

type Cache struct {
	Backend Backend
}

type Credential struct {
	Backend Backend
	// Secret derives the keys that seal personal API keys.
	Secret string
}

// RedisConfig is shared by every Redis-backed store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Postgres struct {
	DSN      string
	MaxConns int32
}

type Kafka struct {
	Brokers     []string
	TopicPrefix string
	Partitions  int32
	Replication int16
	// BufferSize bounds the events waiting for delivery; extra events are
	// dropped.
	BufferSize int
}

// Auth configures caller identification. Bearer tokens are issued by an
// external identity provider and verified with JWTSigningKey.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	CookieName    string
	CookieSecure  bool
}

// FromEnv builds the configuration from ASKDATA_* variables, plus
// GEMINI_API_KEY for the server interpreter key.
func FromEnv() (Config, error) {
	var p parser
	cfg := Config{
		Server: Server{
			Addr:            p.str("ASKDATA_ADDR", ":8080"),
			ShutdownTimeout: p.duration("ASKDATA_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: Log{
			Level:  p.str("ASKDATA_LOG_LEVEL", "info"),
			Format: p.str("ASKDATA_LOG_FORMAT", "json"),
		},
		Catalogue: Catalogue{
			Dir:         p.str("ASKDATA_CATALOGUE_DIR", "data"),
			Concurrency: p.integer("ASKDATA_CATALOGUE_CONCURRENCY", 4),
		},
		Interpreter: Interpreter{
			APIKey:            p.str("GEMINI_API_KEY", ""),
			Endpoint:          p.str("ASKDATA_GEMINI_ENDPOINT", ""),
			PrimaryModel:      p.str("ASKDATA_GEMINI_PRIMARY_MODEL", "gemini-2.5-flash"),
			SecondaryModel:    p.str("ASKDATA_GEMINI_SECONDARY_MODEL", "gemini-2.5-flash-lite"),
			MaxAttempts:       p.integer("ASKDATA_GEMINI_MAX_ATTEMPTS", 3),
			AttemptTimeout:    p.duration("ASKDATA_GEMINI_ATTEMPT_TIMEOUT", 20*time.Second),
			MaxConcurrent:     int64(p.integer("ASKDATA_GEMINI_MAX_CONCURRENT", 4)),
			RequestsPerSecond: p.float("ASKDATA_GEMINI_RPS", 0),
			BreakerFailures:   p.integer("ASKDATA_GEMINI_BREAKER_FAILURES", 5),
			BreakerCooldown:   p.duration("ASKDATA_GEMINI_BREAKER_COOLDOWN", 30*time.Second),
		},
		Quota: Quota{
			Backend:        Backend(p.str("ASKDATA_QUOTA_BACKEND", string(BackendMemory))),
			AccountLimit:   p.integer("ASKDATA_QUOTA_ACCOUNT_LIMIT", 10),
			AnonymousLimit: p.integer("ASKDATA_QUOTA_ANONYMOUS_LIMIT", 3),
			Timezone:       p.str("ASKDATA_QUOTA_TIMEZONE", "UTC"),
		},
		Cache: Cache{
			Backend: Backend(p.str("ASKDATA_CACHE_BACKEND", string(BackendMemory))),
		},
		Credential: Credential{
			Backend: Backend(p.str("ASKDATA_CREDENTIAL_BACKEND", string(BackendMemory))),
			Secret:  p.str("ASKDATA_CREDENTIAL_SECRET", ""),
		},
		Redis: RedisConfig{
			URL:          p.str("ASKDATA_REDIS_URL", ""),
			PoolSize:     p.integer("ASKDATA_REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("ASKDATA_REDIS_MIN_IDLE", 2),
			DialTimeout:  p.duration("ASKDATA_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("ASKDATA_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("ASKDATA_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			DSN:      p.str("ASKDATA_POSTGRES_DSN", ""),
			MaxConns: int32(p.integer("ASKDATA_POSTGRES_MAX_CONNS", 10)),
		},
		Kafka: Kafka{
			Brokers:     p.list("ASKDATA_KAFKA_BROKERS"),
			TopicPrefix: p.str("ASKDATA_KAFKA_TOPIC_PREFIX", "askdata."),
			Partitions:  int32(p.integer("ASKDATA_KAFKA_PARTITIONS", 3)),
			Replication: int16(p.integer("ASKDATA_KAFKA_REPLICATION", 1)),
			BufferSize:  p.integer("ASKDATA_KAFKA_BUFFER_SIZE", 1024),
		},
		Auth: Auth{
			JWTSigningKey: p.str("ASKDATA_JWT_SIGNING_KEY", ""),
			Issuer:        p.str("ASKDATA_JWT_ISSUER", ""),
			CookieName:    p.str("ASKDATA_SESSION_COOKIE", "askdata_session"),
			CookieSecure:  p.boolean("ASKDATA_SESSION_COOKIE_SECURE", true),
		},
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects impossible combinations.
func (c Config) Validate() error {
	var errs []error
	if c.Quota.AccountLimit < 0 || c.Quota.AnonymousLimit < 0 {
		errs = append(errs, fmt.Errorf("quota limits must not be negative"))
	}
	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("quota timezone %q: %w", c.Quota.Timezone, err))
	}
	if c.Interpreter.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("interpreter max attempts must be at least 1"))
	}
	if c.Interpreter.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("interpreter max concurrent must be at least 1"))
	}
	for name, b := range map[string]Backend{"cache": c.Cache.Backend, "quota": c.Quota.Backend, "credential": c.Credential.Backend} {
		switch b {
		case BackendMemory:
		case BackendRedis:
			if c.Redis.URL == "" {
				errs = append(errs, fmt.Errorf("%s backend redis requires ASKDATA_REDIS_URL", name))
			}
		case BackendPostgres:
			if name == "credential" {
				errs = append(errs, fmt.Errorf("credential backend must be memory or redis"))
			} else if c.Postgres.DSN == "" {
				errs = append(errs, fmt.Errorf("%s backend postgres requires ASKDATA_POSTGRES_DSN", name))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown %s backend %q", name, b))
		}
	}
	if c.Credential.Secret != "" && len(c.Credential.Secret) < 32 {
		errs = append(errs, fmt.Errorf("credential secret must be at least 32 bytes"))
	}
	if c.Kafka.Partitions < 1 || c.Kafka.Replication < 1 {
		errs = append(errs, fmt.Errorf("kafka partitions and replication must be positive"))
	}
	if c.Kafka.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("kafka buffer size must be positive"))
	}
	return errors.Join(errs...)
}

// Location returns the quota time zone. Call Validate first.
func (q Quota) Location() *time.Location {
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs []error
}

func (p *parser) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (p *parser) boolean(key string, def bool) bool {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) list(key string) []string {
	var out []string
	for _, part := range strings.Split(p.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
