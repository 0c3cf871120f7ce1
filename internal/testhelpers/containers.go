// Package testhelpers starts shared containers for integration tests
package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/redis"
)

const (
	postgresImage = "pgvector/pgvector:pg16"
	redisImage    = "redis:7-alpine"
)

// TestDB is a migrated PostgreSQL database shared by the integration tests of one package
type TestDB struct {
	Container testcontainers.Container
	DB        database.DB
}

var (
	sharedDB     *TestDB
	sharedDBOnce sync.Once
	sharedDBErr  error

	sharedRedis     *redis.Client
	sharedRedisOnce sync.Once
	sharedRedisErr  error
)

// Logger returns a logger that drops every entry
func Logger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// GetTestDB returns a PostgreSQL container with pgvector and all migrations applied.
// Skipped in short mode or when Docker is unavailable.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = startPostgres(context.Background())
	})
	if sharedDBErr != nil {
		t.Skipf("Skipping integration test, PostgreSQL unavailable: %v", sharedDBErr)
	}

	return sharedDB
}

// Truncate empties the given tables between tests
func (db *TestDB) Truncate(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.DB.ExecContext(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}

func startPostgres(ctx context.Context) (*TestDB, error) {
	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "sage",
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "sage",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, err
	}

	logger := Logger()
	db, err := database.Connect(ctx, database.Config{
		Host:     host,
		Port:     port.Port(),
		User:     "sage",
		Password: "password",
		Name:     "sage",
		SSLMode:  "disable",
	}, logger)
	if err != nil {
		return nil, err
	}

	migrations := database.NewMigrationService(logger, database.MigrationConfig{})
	if err := migrations.Migrate(db, "sage"); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return &TestDB{Container: container, DB: db}, nil
}

// GetTestRedis returns a client for a shared Redis container
func GetTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedRedisOnce.Do(func() {
		sharedRedis, sharedRedisErr = startRedis(context.Background())
	})
	if sharedRedisErr != nil {
		t.Skipf("Skipping integration test, Redis unavailable: %v", sharedRedisErr)
	}

	return sharedRedis
}

func startRedis(ctx context.Context) (*redis.Client, error) {
	req := testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return nil, err
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		return nil, err
	}

	return redis.NewClient(ctx, redis.Config{Host: host, Port: portNum}, Logger())
}
