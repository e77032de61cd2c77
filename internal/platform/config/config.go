package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"

	kstrings "keygate/pkg/platform/strings"
)

// Config is the full runtime configuration, read from the environment.
type Config struct {
	Addr              string
	LogLevel          string
	LogFormat         string
	TrustProxyHeaders bool
	ShutdownTimeout   time.Duration

	Auth     AuthConfig
	Database DatabaseConfig
	Redis    RedisConfig
	APIKeys  APIKeyConfig
	Search   SearchConfig
	Kafka    KafkaConfig
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	IssuerDomain  string
	JWTSigningKey string
	// TokenIssuer, when set, must match the "iss" claim.
	TokenIssuer   string
	TokenLeeway   time.Duration
}

// DatabaseConfig points at the PostgreSQL key store. Empty URL disables it.
type DatabaseConfig struct {
	URL string
}

// RedisConfig configures the API key cache. Empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// APIKeyConfig configures key lookup caching and seeding.
type APIKeyConfig struct {
	CacheTTL  time.Duration
	CacheSize int
	SeedFile  string
}

// SearchConfig configures the search backend and its write queue. Empty Node
// disables indexing.
type SearchConfig struct {
	Node              string
	Username          string
	Password          string
	APIKey            string
	Retries           int
	RetryBaseDelay    time.Duration
	MaxPending        int
	AuthEventsIndex   string
	RetentionDays     int
	RetentionSchedule string
}

// KafkaConfig configures publication of index failures. Empty Brokers
// disables it.
type KafkaConfig struct {
	Brokers            []string
	IndexFailuresTopic string
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Config from environment variables with development
// defaults. Call Validate before use.
func FromEnv() (Config, error) {
	e := &envReader{}
	cfg := Config{
		Addr:              e.str("KEYGATE_ADDR", ":8080"),
		LogLevel:          e.str("LOG_LEVEL", "info"),
		LogFormat:         e.str("LOG_FORMAT", "json"),
		TrustProxyHeaders: e.boolean("TRUST_PROXY_HEADERS", false),
		ShutdownTimeout:   e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Auth: AuthConfig{
			IssuerDomain: e.str("AUTH_ISSUER_DOMAIN", "localhost"),
			// Development default; production must override it.
			JWTSigningKey: e.str("JWT_SIGNING_KEY", devSigningKey),
			TokenIssuer:   e.str("AUTH_TOKEN_ISSUER", ""),
			TokenLeeway:   e.duration("AUTH_TOKEN_LEEWAY", 0),
		},
		Database: DatabaseConfig{
			URL: e.str("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		APIKeys: APIKeyConfig{
			CacheTTL:  e.duration("APIKEY_CACHE_TTL", time.Minute),
			CacheSize: e.integer("APIKEY_CACHE_SIZE", 10000),
			SeedFile:  e.str("APIKEY_SEED_FILE", ""),
		},
		Search: SearchConfig{
			Node:              e.str("SEARCH_NODE", ""),
			Username:          e.str("SEARCH_USERNAME", ""),
			Password:          e.str("SEARCH_PASSWORD", ""),
			APIKey:            e.str("SEARCH_API_KEY", ""),
			Retries:           e.integer("SEARCH_RETRIES", 3),
			RetryBaseDelay:    e.duration("SEARCH_RETRY_BASE_DELAY", time.Second),
			MaxPending:        e.integer("SEARCH_QUEUE_MAX_PENDING", 0),
			AuthEventsIndex:   e.str("SEARCH_AUTH_EVENTS_INDEX", ""),
			RetentionDays:     e.integer("SEARCH_RETENTION_DAYS", 0),
			RetentionSchedule: e.str("SEARCH_RETENTION_SCHEDULE", "0 3 * * *"),
		},
		Kafka: KafkaConfig{
			Brokers:            kstrings.SplitList(e.str("KAFKA_BROKERS", "")),
			IndexFailuresTopic: e.str("KAFKA_INDEX_FAILURES_TOPIC", "keygate.index-failures"),
		},
	}
	return cfg, e.err()
}

// UsesDevSigningKey reports whether the built-in development key is active.
func (c Config) UsesDevSigningKey() bool {
	return c.Auth.JWTSigningKey == devSigningKey
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("json", "text")),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Second)),
		validation.Field(&c.Auth),
		validation.Field(&c.Database),
		validation.Field(&c.Redis),
		validation.Field(&c.APIKeys),
		validation.Field(&c.Search),
		validation.Field(&c.Kafka),
	)
}

func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.IssuerDomain, validation.Required),
		validation.Field(&a.JWTSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&a.TokenLeeway, validation.Min(time.Duration(0)), validation.Max(5*time.Minute)),
	)
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.URL, validation.By(urlWithScheme("postgres", "postgresql"))),
	)
}

func (r RedisConfig) Validate() error {
	enabled := r.URL != ""
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.By(urlWithScheme("redis", "rediss"))),
		validation.Field(&r.PoolSize, validation.When(enabled, validation.Required, validation.Min(1))),
		validation.Field(&r.MinIdleConns, validation.Min(0)),
		validation.Field(&r.DialTimeout, validation.When(enabled, validation.Required)),
	)
}

func (k APIKeyConfig) Validate() error {
	return validation.ValidateStruct(&k,
		validation.Field(&k.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&k.CacheSize, validation.Min(0)),
	)
}

func (s SearchConfig) Validate() error {
	enabled := s.Node != ""
	return validation.ValidateStruct(&s,
		validation.Field(&s.Node, validation.By(urlWithScheme("http", "https"))),
		validation.Field(&s.Username, validation.When(s.Password != "", validation.Required)),
		validation.Field(&s.APIKey, validation.When(s.Username != "", validation.Empty.Error("cannot be combined with basic auth"))),
		validation.Field(&s.Retries, validation.Min(0), validation.Max(20)),
		validation.Field(&s.RetryBaseDelay, validation.When(enabled, validation.Required, validation.Min(time.Millisecond))),
		validation.Field(&s.MaxPending, validation.Min(0)),
		validation.Field(&s.RetentionDays, validation.Min(0)),
		validation.Field(&s.RetentionSchedule, validation.When(s.RetentionDays > 0, validation.Required, validation.By(cronSchedule))),
	)
}

func (k KafkaConfig) Validate() error {
	return validation.ValidateStruct(&k,
		validation.Field(&k.IndexFailuresTopic, validation.When(len(k.Brokers) > 0, validation.Required)),
	)
}

func urlWithScheme(schemes ...string) validation.RuleFunc {
	return func(value any) error {
		raw, _ := value.(string)
		if raw == "" {
			return nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			return errors.New("must be a valid URL")
		}
		for _, scheme := range schemes {
			if u.Scheme == scheme {
				return nil
			}
		}
		return fmt.Errorf("must use one of the schemes %v", schemes)
	}
}

func cronSchedule(value any) error {
	spec, _ := value.(string)
	if _, err := cron.ParseStandard(spec); err != nil {
		return errors.New("must be a valid cron schedule")
	}
	return nil
}

// envReader collects parse errors so FromEnv can report all of them at once.
type envReader struct {
	errs []error
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *envReader) boolean(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (e *envReader) err() error {
	return errors.Join(e.errs...)
}
