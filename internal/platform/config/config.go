package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"doiregistrar/pkg/platform/strings"
)

// envPrefix namespaces every variable, e.g. DOI_REGISTRY_MDS_URL.
const envPrefix = "DOI"

// Config is the worker configuration, loaded from the environment.
type Config struct {
	Server     Server      `envconfig:"SERVER"`
	Logging    Logging     `envconfig:"LOG"`
	Registry   Registry    `envconfig:"REGISTRY"`
	Secrets    Secrets     `envconfig:"SECRETS"`
	Redis      RedisConfig `envconfig:"REDIS"`
	Kafka      Kafka       `envconfig:"KAFKA"`
	Publisher  Publisher   `envconfig:"PUBLISHER"`
	DeadLetter DeadLetter  `envconfig:"DEAD_LETTER"`
	Postgres   Postgres    `envconfig:"POSTGRES"`
}

// Server captures the ops HTTP listener.
type Server struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

type Logging struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

// Registry locates the DOI registry's two APIs.
type Registry struct {
	MdsURL         string        `envconfig:"MDS_URL" default:"https://mds.test.datacite.org"`
	RestURL        string        `envconfig:"REST_URL" default:"https://api.test.datacite.org"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"3s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	// EnforcePrefix rejects DOIs outside the tenant's configured prefix.
	EnforcePrefix bool `envconfig:"ENFORCE_PREFIX" default:"false"`
}

// Secrets selects where the customer credential document comes from.
// Inline JSON wins over Redis when both are set.
type Secrets struct {
	Inline   string `envconfig:"INLINE"`
	RedisKey string `envconfig:"REDIS_KEY" default:"doiregistrar:secrets:customers"`
}

// RedisConfig is consumed by the platform redis client.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type Kafka struct {
	Brokers  []string `envconfig:"BROKERS" default:"localhost:9092"`
	ClientID string   `envconfig:"CLIENT_ID" default:"doiregistrar"`
	// ChangeTopic carries change-data-capture records from the publication store.
	ChangeTopic string `envconfig:"CHANGE_TOPIC" default:"publication-changes"`
	// EventsTopic receives fanned-out change records for the handler loop.
	EventsTopic string `envconfig:"EVENTS_TOPIC" default:"doi-events"`
	// NotificationsTopic receives DoiUpdated events.
	NotificationsTopic string `envconfig:"NOTIFICATIONS_TOPIC" default:"doi-notifications"`
	DeadLetterTopic    string `envconfig:"DEAD_LETTER_TOPIC" default:"doi-events-dlq"`
	FanoutGroup        string `envconfig:"FANOUT_GROUP" default:"doiregistrar-fanout"`
	HandlerGroup       string `envconfig:"HANDLER_GROUP" default:"doiregistrar-handler"`
	// BootstrapTopics creates missing topics on startup.
	BootstrapTopics bool  `envconfig:"BOOTSTRAP_TOPICS" default:"false"`
	Partitions      int32 `envconfig:"PARTITIONS" default:"3"`
	Replication     int16 `envconfig:"REPLICATION" default:"1"`
}

type Publisher struct {
	MaxAttempts       int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	BatchSize         int           `envconfig:"BATCH_SIZE" default:"10"`
	Backoff           time.Duration `envconfig:"BACKOFF" default:"200ms"`
	MaxBackoff        time.Duration `envconfig:"MAX_BACKOFF" default:"30s"`
	DeadLetterTimeout time.Duration `envconfig:"DEAD_LETTER_TIMEOUT" default:"10s"`
}

// Dead-letter backends.
const (
	BackendKafka    = "kafka"
	BackendPostgres = "postgres"
	// BackendFailover writes to Kafka and falls back to Postgres.
	BackendFailover = "failover"
)

type DeadLetter struct {
	Backend          string        `envconfig:"BACKEND" default:"kafka"`
	FailureThreshold int           `envconfig:"FAILURE_THRESHOLD" default:"5"`
	Cooldown         time.Duration `envconfig:"COOLDOWN" default:"30s"`
	RedriveLimit     int           `envconfig:"REDRIVE_LIMIT" default:"100"`
}

type Postgres struct {
	DSN string `envconfig:"DSN"`
}

var (
	errNoBrokers       = errors.New("at least one kafka broker is required")
	errUnknownBackend  = errors.New("unknown dead-letter backend")
	errPostgresMissing = errors.New("postgres dsn is required for the selected dead-letter backend")
)

// Load reads the configuration from DOI_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Kafka.Brokers = strings.DedupeAndTrim(c.Kafka.Brokers)
	if len(c.Kafka.Brokers) == 0 {
		return errNoBrokers
	}
	switch c.DeadLetter.Backend {
	case BackendKafka:
	case BackendPostgres, BackendFailover:
		if c.Postgres.DSN == "" {
			return errPostgresMissing
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownBackend, c.DeadLetter.Backend)
	}
	return nil
}

// UsesPostgres reports whether the dead-letter backend needs a database.
func (c *Config) UsesPostgres() bool {
	return c.DeadLetter.Backend == BackendPostgres || c.DeadLetter.Backend == BackendFailover
}
