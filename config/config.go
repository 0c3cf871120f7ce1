package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"sage-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Tracing
	TraceExporter     string  `env:"TRACE_EXPORTER" env-default:"none"`
	TraceOTLPEndpoint string  `env:"TRACE_OTLP_ENDPOINT" env-default:"localhost:4317"`
	TraceOTLPProtocol string  `env:"TRACE_OTLP_PROTOCOL" env-default:"grpc"`
	TraceOTLPInsecure bool    `env:"TRACE_OTLP_INSECURE" env-default:"true"`
	TraceSampleRatio  float64 `env:"TRACE_SAMPLE_RATIO" env-default:"1"`

	// PostgreSQL (identity store, embeddings, review queue)
	DatabaseHost                  string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"sage"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10m"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:""` // empty uses the embedded migrations
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"` // 0 migrates to the latest
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`
	DatabaseMigrateOnStart        bool          `env:"DB_MIGRATE_ON_START" env-default:"true"`

	// Embedding service (OpenAI-compatible)
	EmbeddingAPIKey     string        `env:"EMBEDDING_API_KEY" env-default:""`
	EmbeddingBaseURL    string        `env:"EMBEDDING_BASE_URL" env-default:""`
	EmbeddingModel      string        `env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	EmbeddingDimensions int           `env:"EMBEDDING_DIMENSIONS" env-default:"1536"`
	EmbeddingTimeout    time.Duration `env:"EMBEDDING_TIMEOUT" env-default:"10s"`
	EmbeddingCacheTTL   time.Duration `env:"EMBEDDING_CACHE_TTL" env-default:"168h"`

	// Matching thresholds
	MatchVectorAcceptThreshold float64 `env:"MATCH_VECTOR_ACCEPT_THRESHOLD" env-default:"0.92"`
	MatchFuzzyAcceptScore      float64 `env:"MATCH_FUZZY_ACCEPT_SCORE" env-default:"90"`
	MatchReviewFloorScore      float64 `env:"MATCH_REVIEW_FLOOR_SCORE" env-default:"80"`
	MatchVectorTopK            int     `env:"MATCH_VECTOR_TOP_K" env-default:"5"`
	MatchDefaultClassYear      int     `env:"MATCH_DEFAULT_CLASS_YEAR" env-default:"2025"`

	// Link consumer and backfill
	LinkWorkerCount        int     `env:"LINK_WORKER_COUNT" env-default:"1"`
	BackfillBatchSize      int     `env:"BACKFILL_BATCH_SIZE" env-default:"100"`
	BackfillRequestsPerSec float64 `env:"BACKFILL_REQUESTS_PER_SECOND" env-default:"5"`

	// Redis (embedding cache)
	RedisEnabled  bool   `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Graph Database (Memgraph / Neo4j)
	GraphEnabled    bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`
	GraphDBName     string `env:"GRAPH_DB_NAME" env-default:""`

	// Kafka
	KafkaEnabled        bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers        []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaMentionsTopic  string   `env:"KAFKA_MENTIONS_TOPIC" env-default:"player-mentions"`
	KafkaConsumerGroup  string   `env:"KAFKA_CONSUMER_GROUP" env-default:"sage-linker"`
	KafkaEventsTopic    string   `env:"KAFKA_EVENTS_TOPIC" env-default:"identity-events"`
	KafkaBatchSize      int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeoutMs int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks   int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression    string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`
	KafkaMaxAttempts    int      `env:"KAFKA_MAX_ATTEMPTS" env-default:"3"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks threshold ordering and bounds
func (c *Config) Validate() error {
	if c.MatchVectorAcceptThreshold <= 0 || c.MatchVectorAcceptThreshold > 1 {
		return fmt.Errorf("MATCH_VECTOR_ACCEPT_THRESHOLD must be in (0, 1], got %v", c.MatchVectorAcceptThreshold)
	}
	if c.MatchReviewFloorScore < 0 || c.MatchFuzzyAcceptScore > 100 {
		return fmt.Errorf("fuzzy scores must be within [0, 100]")
	}
	if c.MatchReviewFloorScore > c.MatchFuzzyAcceptScore {
		return fmt.Errorf("MATCH_REVIEW_FLOOR_SCORE (%v) must not exceed MATCH_FUZZY_ACCEPT_SCORE (%v)", c.MatchReviewFloorScore, c.MatchFuzzyAcceptScore)
	}
	if c.MatchVectorTopK < 1 {
		return fmt.Errorf("MATCH_VECTOR_TOP_K must be at least 1")
	}
	if c.DatabaseMigrationVersion < 0 {
		return fmt.Errorf("DB_MIGRATION_VERSION must not be negative")
	}
	return nil
}
