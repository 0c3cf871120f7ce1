package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/routes"
	"github.com/Ramsey-B/sage/pkg/routes/health"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, when Kafka is enabled, the mention consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger, cfg.DatabaseMigrateOnStart)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			a.close(shutdownCtx)
		}()

		deps := []health.Dependency{{Name: "database", Ping: a.db.PingContext}}
		if a.redis != nil {
			deps = append(deps, health.Dependency{Name: "redis", Ping: a.redis.Ping, Optional: true})
		}
		if a.graph != nil {
			deps = append(deps, health.Dependency{Name: "graph", Ping: a.graph.VerifyConnectivity, Optional: true})
		}
		checker := health.NewChecker(version, deps...)

		opts := routes.Options{
			ServiceName:    cfg.AppName,
			Port:           cfg.Port,
			ReadTimeout:    time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
			WriteTimeout:   time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
			IdleTimeout:    time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
			AllowOrigins:   cfg.AllowOrigins,
			AllowMethods:   cfg.AllowMethods,
		}
		e := routes.NewEcho(opts, routes.Dependencies{
			Logger:  logger,
			Health:  checker,
			Matcher: a.matcher,
			Players: a.players,
			Review:  a.review,
			Linker:  a.linker,
			Reports: a.reportPlayers,
		})
		srv := routes.NewServer(opts, e)

		var consumer *kafka.Consumer
		if cfg.KafkaEnabled {
			consumer = kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:       cfg.KafkaBrokers,
				Topic:         cfg.KafkaMentionsTopic,
				ConsumerGroup: cfg.KafkaConsumerGroup,
				MaxAttempts:   cfg.KafkaMaxAttempts,
			}, logger, a.linker.HandleMessage)
			if err := consumer.Start(ctx); err != nil {
				return err
			}
		}

		serverErr := make(chan error, 1)
		go func() {
			logger.WithField("port", cfg.Port).Info("Starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()
		checker.SetReady(true)

		select {
		case <-ctx.Done():
		case err := <-serverErr:
			if err != nil {
				return err
			}
		}

		logger.Info("Shutting down")
		checker.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if consumer != nil {
			if err := consumer.Stop(); err != nil {
				logger.WithError(err).Warn("Failed to stop Kafka consumer")
			}
		}
		return srv.Shutdown(shutdownCtx)
	},
}

// version is stamped at build time with -ldflags "-X github.com/Ramsey-B/sage/cmd/sage/commands.version=..."
var version = "dev"
