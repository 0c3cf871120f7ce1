// Package kafka reads mention reports and publishes identity events
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/sage/pkg/tracing"
)

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string // none, gzip, snappy, lz4 or zstd
}

// Producer writes JSON values to one topic. Keys hash to partitions, so every
// event about one player lands on the same partition in order.
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
}

// NewProducer builds the writer. It fails only on an unknown compression codec.
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) (*Producer, error) {
	codec, err := compressionCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              cfg.BatchSize,
			BatchTimeout:           cfg.BatchTimeout,
			RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:            codec,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}, nil
}

func compressionCodec(name string) (kafka.Compression, error) {
	switch name {
	case "", "snappy":
		return kafka.Snappy, nil
	case "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	}
	return 0, fmt.Errorf("unsupported kafka compression %q", name)
}

// Close flushes pending batches
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Publish writes value as JSON under key. The event type and trace context travel as headers.
func (p *Producer) Publish(ctx context.Context, key, eventType string, value any) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.Publish",
		attribute.String("messaging.destination", p.writer.Topic),
		attribute.String("event.type", eventType),
	)
	defer span.End()

	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	headers := headerCarrier{{Key: "event_type", Value: []byte(eventType)}}
	otel.GetTextMapPropagator().Inject(ctx, &headers)

	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body, Headers: headers})
	if err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

// headerCarrier adapts Kafka headers to the otel TextMapCarrier
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, h.Key)
	}
	return keys
}
