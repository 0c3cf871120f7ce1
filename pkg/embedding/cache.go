package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/redis"
)

// Cache is the key/value store behind CachedEmbedder. Missing keys return redis.ErrNotFound.
type Cache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// CachedEmbedder serves repeated identity texts from a cache.
// Cache failures are logged and bypassed.
type CachedEmbedder struct {
	inner  Embedder
	cache  Cache
	model  string
	ttl    time.Duration
	logger ectologger.Logger
}

// NewCachedEmbedder wraps inner. model namespaces the keys so a model change never serves stale vectors.
func NewCachedEmbedder(inner Embedder, cache Cache, model string, ttl time.Duration, logger ectologger.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		cache:  cache,
		model:  model,
		ttl:    ttl,
		logger: logger,
	}
}

// Embed returns the cached vector for text or calls the wrapped embedder and stores the result
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	raw, err := c.cache.GetBytes(ctx, key)
	switch {
	case err == nil:
		if vector, decodeErr := decodeVector(raw); decodeErr == nil {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			return vector, nil
		}
		metrics.EmbeddingCacheTotal.WithLabelValues("corrupt").Inc()
	case errors.Is(err, redis.ErrNotFound):
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.EmbeddingCacheTotal.WithLabelValues("error").Inc()
		c.logger.WithContext(ctx).WithError(err).Warn("Embedding cache read failed")
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, encodeVector(vector), c.ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Embedding cache write failed")
	}

	return vector, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("sage:embedding:%s:%s", c.model, hex.EncodeToString(sum[:]))
}

// encodeVector packs a vector as little-endian float32s
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid cached vector length %d", len(buf))
	}
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vector, nil
}
