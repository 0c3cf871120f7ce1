package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/internal/repositories/pendinglink"
	"github.com/Ramsey-B/sage/internal/repositories/player"
	"github.com/Ramsey-B/sage/internal/repositories/playerembedding"
	"github.com/Ramsey-B/sage/internal/repositories/reportplayer"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/embedding"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/graph"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/linking"
	"github.com/Ramsey-B/sage/pkg/matching"
	sageredis "github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/review"
	"github.com/Ramsey-B/sage/pkg/startup"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// app holds the connected infrastructure and the services built on it
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	startup *startup.Startup
	tracer  *sdktrace.TracerProvider

	db       database.DB
	redis    *sageredis.Client
	graph    *graph.Client
	producer *kafka.Producer

	players       *player.Repository
	embeddings    *playerembedding.Repository
	pendingLinks  *pendinglink.Repository
	reportPlayers *reportplayer.Repository

	embedder  embedding.Embedder
	generator *embedding.Generator
	emitter   events.Emitter
	matcher   *matching.Matcher
	review    *review.Service
	linker    *linking.Consumer
}

// newApp connects every enabled dependency in order and wires the services.
// Migrations run when migrate is set.
func newApp(ctx context.Context, cfg *config.Config, logger ectologger.Logger, migrate bool) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
	}

	tracer, err := tracing.NewProvider(ctx, tracing.ProviderConfig{
		ServiceName: cfg.AppName,
		Exporter:    cfg.TraceExporter,
		Endpoint:    cfg.TraceOTLPEndpoint,
		Protocol:    cfg.TraceOTLPProtocol,
		Insecure:    cfg.TraceOTLPInsecure,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return nil, err
	}
	a.tracer = tracer

	a.startup.AddDependency(&startup.Dependency{
		Name: "postgres",
		StartFn: func(ctx context.Context) error {
			db, err := database.Connect(ctx, database.Config{
				Host:            cfg.DatabaseHost,
				Port:            cfg.DatabasePort,
				User:            cfg.DatabaseUserName,
				Password:        cfg.DatabasePassword,
				Name:            cfg.DatabaseName,
				SSLMode:         cfg.DatabaseSSLMode,
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, logger)
			if err != nil {
				return err
			}
			a.db = db

			if !migrate {
				return nil
			}
			return database.NewMigrationService(logger, database.MigrationConfig{
				Folder:       cfg.DatabaseMigrationFolderPath,
				Version:      uint(cfg.DatabaseMigrationVersion),
				Force:        cfg.DatabaseMigrationForce,
				AutoRollback: cfg.DatabaseMigrationAutoRollback,
			}).Migrate(db, cfg.DatabaseName)
		},
		StopFn: func(context.Context) error {
			if a.db == nil {
				return nil
			}
			return a.db.Close()
		},
	})

	if cfg.RedisEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name: "redis",
			StartFn: func(ctx context.Context) error {
				client, err := sageredis.NewClient(ctx, sageredis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				a.redis = client
				return nil
			},
			StopFn: func(context.Context) error {
				if a.redis == nil {
					return nil
				}
				return a.redis.Close()
			},
		})
	}

	if cfg.GraphEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name:     "graph",
			Requires: []string{"postgres"},
			StartFn: func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					Host:     cfg.GraphDBHost,
					Port:     cfg.GraphDBPort,
					Username: cfg.GraphDBUser,
					Password: cfg.GraphDBPassword,
					Database: cfg.GraphDBName,
				}, logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					_ = client.Close(ctx)
					return fmt.Errorf("graph database unreachable: %w", err)
				}
				a.graph = client
				return nil
			},
			StopFn: func(ctx context.Context) error {
				if a.graph == nil {
					return nil
				}
				return a.graph.Close(ctx)
			},
		})
	}

	if cfg.KafkaEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name: "kafka-producer",
			StartFn: func(context.Context) error {
				producer, err := kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaEventsTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeoutMs) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				if err != nil {
					return err
				}
				a.producer = producer
				return nil
			},
			StopFn: func(context.Context) error {
				if a.producer == nil {
					return nil
				}
				return a.producer.Close()
			},
		})
	}

	if err := a.startup.Start(ctx); err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}

	a.wire()
	return a, nil
}

func (a *app) wire() {
	cfg := a.cfg

	a.players = player.NewRepository(a.db, a.logger)
	a.embeddings = playerembedding.NewRepository(a.db, a.logger)
	a.pendingLinks = pendinglink.NewRepository(a.db, a.logger)
	a.reportPlayers = reportplayer.NewRepository(a.db, a.logger)

	a.emitter = events.Noop{}
	if a.producer != nil {
		a.emitter = events.NewKafkaEmitter(a.producer, a.logger)
	}

	// the vector tier stays off without an embedding endpoint
	var index matching.EmbeddingIndex
	var matchEmbedder matching.Embedder
	if cfg.EmbeddingAPIKey != "" || cfg.EmbeddingBaseURL != "" {
		openai := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     cfg.EmbeddingAPIKey,
			BaseURL:    cfg.EmbeddingBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		}, a.logger)

		a.embedder = openai
		if a.redis != nil {
			a.embedder = embedding.NewCachedEmbedder(openai, a.redis, openai.Model(), cfg.EmbeddingCacheTTL, a.logger)
		}
		a.generator = embedding.NewGenerator(a.embedder, a.embeddings, a.logger)

		index = a.embeddings
		matchEmbedder = a.embedder
	}

	a.matcher = matching.NewMatcher(a.logger, a.players, index, matchEmbedder, nil, a.pendingLinks, matching.Config{
		VectorAcceptThreshold: cfg.MatchVectorAcceptThreshold,
		FuzzyAcceptScore:      cfg.MatchFuzzyAcceptScore,
		ReviewFloorScore:      cfg.MatchReviewFloorScore,
		TopK:                  cfg.MatchVectorTopK,
		DefaultClassYear:      cfg.MatchDefaultClassYear,
		EmbeddingTimeout:      cfg.EmbeddingTimeout,
	})

	a.review = review.NewService(a.pendingLinks, a.emitter, a.logger)

	var graphWriter linking.GraphWriter
	if a.graph != nil {
		graphWriter = graph.NewMentionService(a.graph, a.logger)
	}
	var ensurer linking.EmbeddingEnsurer
	if a.generator != nil {
		ensurer = a.generator
	}

	a.linker = linking.NewConsumer(a.logger, a.matcher, a.players, a.reportPlayers, graphWriter, ensurer, a.emitter, linking.Config{
		WorkerCount:      cfg.LinkWorkerCount,
		DefaultClassYear: cfg.MatchDefaultClassYear,
	})
}

// close stops dependencies in reverse start order
func (a *app) close(ctx context.Context) {
	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to stop dependencies cleanly")
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("Failed to flush traces")
		}
	}
}
