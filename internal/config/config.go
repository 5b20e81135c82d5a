// Package config defines all configuration structures for the CiteScope
// citation-analysis pipeline.  No I/O or parsing logic lives here; only
// plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// DSN renders the pgx connection string for this configuration.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer/consumer parameters for job dispatch.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerRetries int           `mapstructure:"producer_retries"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
}

// OpenSearchConfig holds the reference section index cluster parameters.
type OpenSearchConfig struct {
	Addresses          []string `mapstructure:"addresses"`
	User               string   `mapstructure:"user"`
	Password           string   `mapstructure:"password"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
	IndexPrefix        string   `mapstructure:"index_prefix"`
	SectionTopK        int      `mapstructure:"section_top_k"`
}

// MinIOConfig holds the reference-document object-storage parameters.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// AnalysisConfig holds parameters for the external analysis provider that
// scores element/reference pairs and runs deep analyses.
type AnalysisConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// WorkspaceConfig holds parameters for the drafting-workspace API the
// pipeline pulls claims from.
type WorkspaceConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// AuthConfig holds inbound authentication settings.  An empty issuer URL
// disables bearer-token validation, the local-development mode; API keys are
// for service-to-service callers.
type AuthConfig struct {
	IssuerURL    string   `mapstructure:"issuer_url"`
	Realm        string   `mapstructure:"realm"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// Enabled reports whether any authentication backend is configured.
func (c AuthConfig) Enabled() bool {
	return c.IssuerURL != "" || len(c.APIKeys) > 0
}

// PipelineConfig holds the citation-pipeline behavior knobs.  Several of
// these (threshold, TTLs) are hot-reloadable via config.Watch.
type PipelineConfig struct {
	// JobTimeout bounds a single job's processing phase; a job exceeding it
	// is force-transitioned to failed with a timeout error.
	JobTimeout time.Duration `mapstructure:"job_timeout"`

	// MatchConcurrency bounds how many element matches run at once within a
	// single job.
	MatchConcurrency int `mapstructure:"match_concurrency"`

	// EscalationLimit is the default top-N of shallow matches escalated to
	// deep analysis per reference.
	EscalationLimit int `mapstructure:"escalation_limit"`

	// MinEscalationScore is the shallow-score floor below which a match is
	// never escalated.
	MinEscalationScore float64 `mapstructure:"min_escalation_score"`

	// TopMatchesCacheTTL bounds staleness of cached top-match reads.
	TopMatchesCacheTTL time.Duration `mapstructure:"top_matches_cache_ttl"`

	// CombinedCacheTTL bounds staleness of cached combined-analysis lists.
	CombinedCacheTTL time.Duration `mapstructure:"combined_cache_ttl"`

	// AwaitPollInterval is the polling period used by bounded waits on job
	// completion.
	AwaitPollInterval time.Duration `mapstructure:"await_poll_interval"`
}

// WorkerConfig holds background worker tunables.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	HealthPort  int           `mapstructure:"health_port"`
}

// LogConfig mirrors logging.LogConfig; kept separate so internal/config does
// not import infrastructure packages.
type LogConfig struct {
	Level            string   `mapstructure:"level"`
	Format           string   `mapstructure:"format"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Config is the root configuration aggregate for all CiteScope processes.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Workspace  WorkspaceConfig  `mapstructure:"workspace"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Log        LogConfig        `mapstructure:"log"`
}

// Validate checks the configuration for internal consistency.  It assumes
// ApplyDefaults has already run, so zero values in defaulted fields are
// genuine misconfiguration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	if c.Analysis.Endpoint == "" {
		return fmt.Errorf("config: analysis.endpoint is required")
	}
	if c.Workspace.Endpoint == "" {
		return fmt.Errorf("config: workspace.endpoint is required")
	}

	if c.Pipeline.JobTimeout <= 0 {
		return fmt.Errorf("config: pipeline.job_timeout must be positive")
	}
	if c.Pipeline.MatchConcurrency < 1 {
		return fmt.Errorf("config: pipeline.match_concurrency must be >= 1, got %d", c.Pipeline.MatchConcurrency)
	}
	if c.Pipeline.EscalationLimit < 1 {
		return fmt.Errorf("config: pipeline.escalation_limit must be >= 1, got %d", c.Pipeline.EscalationLimit)
	}
	if c.Pipeline.MinEscalationScore < 0 || c.Pipeline.MinEscalationScore > 1 {
		return fmt.Errorf("config: pipeline.min_escalation_score %.3f is out of range [0, 1]", c.Pipeline.MinEscalationScore)
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
