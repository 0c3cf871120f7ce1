package config

import (
	"testing"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, ectoenv.BindEnv(&cfg))

	assert.Equal(t, 0.92, cfg.MatchVectorAcceptThreshold)
	assert.Equal(t, 90.0, cfg.MatchFuzzyAcceptScore)
	assert.Equal(t, 80.0, cfg.MatchReviewFloorScore)
	assert.Equal(t, 5, cfg.MatchVectorTopK)
	assert.Equal(t, 2025, cfg.MatchDefaultClassYear)
	assert.Equal(t, 10*time.Second, cfg.EmbeddingTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MATCH_VECTOR_TOP_K", "8")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DB_MIGRATION_VERSION", "3")
	t.Setenv("EMBEDDING_TIMEOUT", "2s")
	t.Setenv("MATCH_VECTOR_ACCEPT_THRESHOLD", "0.95")

	var cfg Config
	require.NoError(t, ectoenv.BindEnv(&cfg))
	assert.Equal(t, 8, cfg.MatchVectorTopK)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.DatabaseMigrationVersion)
	assert.Equal(t, 2*time.Second, cfg.EmbeddingTimeout)
	assert.Equal(t, 0.95, cfg.MatchVectorAcceptThreshold)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			MatchVectorAcceptThreshold: 0.92,
			MatchFuzzyAcceptScore:      90,
			MatchReviewFloorScore:      80,
			MatchVectorTopK:            5,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"vector threshold above one", func(c *Config) { c.MatchVectorAcceptThreshold = 1.5 }},
		{"vector threshold zero", func(c *Config) { c.MatchVectorAcceptThreshold = 0 }},
		{"review floor above accept", func(c *Config) { c.MatchReviewFloorScore = 95 }},
		{"accept above hundred", func(c *Config) { c.MatchFuzzyAcceptScore = 101 }},
		{"top k zero", func(c *Config) { c.MatchVectorTopK = 0 }},
		{"negative migration version", func(c *Config) { c.DatabaseMigrationVersion = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	ok := base()
	assert.NoError(t, ok.Validate())
}
