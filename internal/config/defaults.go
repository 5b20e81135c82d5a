package config

import "time"

// Default value constants.
const (
	DefaultServerPort = 8080

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "citescope"
	DefaultDBSSLMode  = "disable"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "citescope:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "citescope-workers"

	DefaultOpenSearchAddr   = "http://localhost:9200"
	DefaultOpenSearchPrefix = "citescope"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "references"

	DefaultAnalysisModel = "citation-scorer-v2"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultJobTimeout         = 5 * time.Minute
	DefaultMatchConcurrency   = 4
	DefaultEscalationLimit    = 3
	DefaultMinEscalationScore = 0.30

	DefaultWorkerConcurrency = 8
)

// ApplyDefaults fills every zero-value field in cfg with the pipeline
// default.  Fields already set by the caller are left unchanged so explicit
// configuration always wins.  It must run after unmarshalling and before
// Validate so optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 5 * time.Minute
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "file://migrations"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 15 * time.Minute
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 100 * time.Millisecond
	}

	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{DefaultOpenSearchAddr}
	}
	if cfg.OpenSearch.IndexPrefix == "" {
		cfg.OpenSearch.IndexPrefix = DefaultOpenSearchPrefix
	}
	if cfg.OpenSearch.SectionTopK == 0 {
		cfg.OpenSearch.SectionTopK = 5
	}

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	if cfg.Analysis.Model == "" {
		cfg.Analysis.Model = DefaultAnalysisModel
	}
	if cfg.Analysis.RequestTimeout == 0 {
		cfg.Analysis.RequestTimeout = 60 * time.Second
	}
	if cfg.Analysis.MaxRetries == 0 {
		cfg.Analysis.MaxRetries = 3
	}
	if cfg.Analysis.InitialBackoff == 0 {
		cfg.Analysis.InitialBackoff = time.Second
	}
	if cfg.Analysis.MaxBackoff == 0 {
		cfg.Analysis.MaxBackoff = 30 * time.Second
	}

	if cfg.Workspace.RequestTimeout == 0 {
		cfg.Workspace.RequestTimeout = 10 * time.Second
	}
	if cfg.Workspace.MaxRetries == 0 {
		cfg.Workspace.MaxRetries = 2
	}

	if cfg.Pipeline.JobTimeout == 0 {
		cfg.Pipeline.JobTimeout = DefaultJobTimeout
	}
	if cfg.Pipeline.MatchConcurrency == 0 {
		cfg.Pipeline.MatchConcurrency = DefaultMatchConcurrency
	}
	if cfg.Pipeline.EscalationLimit == 0 {
		cfg.Pipeline.EscalationLimit = DefaultEscalationLimit
	}
	if cfg.Pipeline.MinEscalationScore == 0 {
		cfg.Pipeline.MinEscalationScore = DefaultMinEscalationScore
	}
	if cfg.Pipeline.TopMatchesCacheTTL == 0 {
		cfg.Pipeline.TopMatchesCacheTTL = 5 * time.Minute
	}
	if cfg.Pipeline.CombinedCacheTTL == 0 {
		cfg.Pipeline.CombinedCacheTTL = 5 * time.Minute
	}
	if cfg.Pipeline.AwaitPollInterval == 0 {
		cfg.Pipeline.AwaitPollInterval = 500 * time.Millisecond
	}

	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryDelay == 0 {
		cfg.Worker.RetryDelay = time.Second
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = 8081
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

//Personal.AI order the ending
