package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/sage/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// ParseReport decodes the message value as a report with its extracted mentions.
// A report without an id takes the message key.
func (m *IncomingMessage) ParseReport() (*models.Report, error) {
	var report models.Report
	if err := json.Unmarshal(m.Value, &report); err != nil {
		return nil, err
	}
	if report.ID == "" {
		report.ID = m.Key
	}
	return &report, nil
}
