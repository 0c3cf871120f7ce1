package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/sashabaranov/go-openai"

	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// DefaultModel is used when no model is configured
const DefaultModel = "text-embedding-3-small"

// OpenAIConfig configures an OpenAI-compatible embedding endpoint
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty uses the public OpenAI endpoint
	Model      string
	Dimensions int // expected vector length, 0 accepts whatever the service returns
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint once per text.
// It does not retry or cache.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	logger     ectologger.Logger
}

// NewOpenAIEmbedder creates a new embedder
func NewOpenAIEmbedder(cfg OpenAIConfig, logger ectologger.Logger) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		dimensions: cfg.Dimensions,
		logger:     logger,
	}
}

// Model returns the configured model name
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Embed returns the vector for text. Every failure is an *models.EmbeddingServiceError.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracing.StartSpan(ctx, "embedding.OpenAIEmbedder.Embed")
	defer span.End()

	start := time.Now()

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	}
	// only the v3 models accept a dimensions override
	if e.dimensions > 0 && strings.HasPrefix(e.model, "text-embedding-3") {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
		log := e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"model":   e.model,
			"elapsed": time.Since(start).String(),
		})
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			log = log.WithField("status_code", apiErr.HTTPStatusCode)
		}
		log.Warn("Embedding request failed")
		return nil, &models.EmbeddingServiceError{Err: err}
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
		return nil, &models.EmbeddingServiceError{Err: errors.New("no embedding in response")}
	}

	vector := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vector) != e.dimensions {
		metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
		return nil, &models.EmbeddingServiceError{
			Err: fmt.Errorf("expected %d dimensions, got %d", e.dimensions, len(vector)),
		}
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("success").Inc()
	return vector, nil
}
