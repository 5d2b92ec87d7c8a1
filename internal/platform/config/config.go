package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is built once at startup and passed down by reference.
type Config struct {
	Server    Server         `envPrefix:"LOOKOUT_"`
	Postgres  PostgresConfig `envPrefix:"POSTGRES_"`
	Redis     RedisConfig    `envPrefix:"REDIS_"`
	Kafka     KafkaConfig    `envPrefix:"KAFKA_"`
	Lookup    Lookup         `envPrefix:"LOOKUP_"`
	Providers Providers      `envPrefix:"PROVIDER_"`
}

// Server captures ops HTTP server configuration.
type Server struct {
	Addr      string `env:"ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	// CacheBackend selects the profile cache store: memory, redis or postgres.
	CacheBackend string `env:"CACHE_BACKEND" envDefault:"memory"`
	// LedgerBackend selects the ledger store: memory or postgres.
	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"memory"`
}

// PostgresConfig configures both the database/sql pool (cache) and the pgx
// pool (ledger). They share one DSN.
type PostgresConfig struct {
	DSN             string        `env:"DSN"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the audit event stream. Empty brokers disables it.
type KafkaConfig struct {
	Brokers           []string `env:"BROKERS" envSeparator:","`
	AuditTopic        string   `env:"AUDIT_TOPIC" envDefault:"lookout.audit"`
	Partitions        int32    `env:"AUDIT_PARTITIONS" envDefault:"3"`
	ReplicationFactor int16    `env:"AUDIT_REPLICATION" envDefault:"1"`
}

// Lookup configures the aggregation pipeline.
type Lookup struct {
	QueryCost      int64         `env:"QUERY_COST" envDefault:"1"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"24h"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"150s"`
	// DefaultAdapterTimeout applies to every adapter without an entry in AdapterTimeouts.
	DefaultAdapterTimeout time.Duration `env:"DEFAULT_ADAPTER_TIMEOUT" envDefault:"15s"`
	// AdapterTimeouts overrides per adapter, e.g. "data_breach:120s,osint_industries:110s".
	AdapterTimeouts map[string]time.Duration `env:"ADAPTER_TIMEOUTS" envSeparator:"," envKeyValSeparator:":" envDefault:"data_breach:120s,people_index:120s,indonesia_investigate:120s,osint_industries:110s,hibp:30s"`
	// MaxInFlight bounds concurrent outbound provider requests process-wide.
	MaxInFlight int `env:"MAX_IN_FLIGHT" envDefault:"64"`
}

// Providers holds upstream credentials and base URLs.
type Providers struct {
	RapidAPIKey        string `env:"RAPIDAPI_KEY"`
	TruecallerKey      string `env:"TRUECALLER_RAPIDAPI_KEY"`
	IPQSKey            string `env:"IPQS_API_KEY"`
	AcelogicKey        string `env:"ACELOGIC_API_KEY"`
	OSINTIndustriesKey string `env:"OSINT_INDUSTRIES_API_KEY"`
	HIBPKey            string `env:"HIBP_API_KEY"`
	DataBreachURL      string `env:"DATA_BREACH_URL"`
	PeopleIndexURL     string `env:"PEOPLE_INDEX_URL"`
	IndonesiaURL       string `env:"INDONESIA_URL"`
	// BaseURLOverride points every adapter at one host; used by tests and staging.
	BaseURLOverride string `env:"BASE_URL_OVERRIDE"`
}

// AdapterTimeout resolves the timeout for one adapter kind.
func (l Lookup) AdapterTimeout(kind string) time.Duration {
	if d, ok := l.AdapterTimeouts[kind]; ok && d > 0 {
		return d
	}
	return l.DefaultAdapterTimeout
}

// TruecallerAPIKey falls back to the shared RapidAPI key.
func (p Providers) TruecallerAPIKey() string {
	if p.TruecallerKey != "" {
		return p.TruecallerKey
	}
	return p.RapidAPIKey
}

// Load builds a Config from environment variables so main stays lean.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Lookup.QueryCost < 0 {
		return fmt.Errorf("LOOKUP_QUERY_COST must not be negative")
	}
	if c.Lookup.MaxInFlight <= 0 {
		return fmt.Errorf("LOOKUP_MAX_IN_FLIGHT must be positive")
	}
	switch c.Server.CacheBackend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("redis cache backend requires REDIS_URL")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres cache backend requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Server.CacheBackend)
	}
	switch c.Server.LedgerBackend {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres ledger backend requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Server.LedgerBackend)
	}
	return nil
}
