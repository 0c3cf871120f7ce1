// Package logging builds the service logger: the ectologger interface backed by zap.
package logging

import (
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Config selects the zap encoder and level
type Config struct {
	AppName string
	Level   string
	Pretty  bool
}

// New returns the service logger and a flush func for shutdown
func New(cfg Config) (ectologger.Logger, func() error, error) {
	z, err := NewZap(cfg)
	if err != nil {
		return nil, nil, err
	}
	return FromZap(z), z.Sync, nil
}

// FromZap writes each ectologger message as a zap entry at the message's level,
// with its fields, its error and the request and trace ids found on its context.
func FromZap(z *zap.Logger) ectologger.Logger {
	return zapadapter.NewZapEctoLogger(z, withContextFields)
}

func withContextFields(msg ectologger.EctoLogMessage) ectologger.EctoLogMessage {
	if msg.Ctx == nil {
		return msg
	}

	fields := make(map[string]any, len(msg.Fields)+2)
	for k, v := range msg.Fields {
		fields[k] = v
	}
	if _, ok := fields["request_id"]; !ok {
		if id := appctx.GetRequestID(msg.Ctx); id != "" {
			fields["request_id"] = id
		}
	}
	if traceID := tracing.GetTraceID(msg.Ctx); traceID != "" {
		fields["trace_id"] = traceID
	}

	msg.Fields = fields
	msg.Ctx = nil
	return msg
}

// NewZap builds the zap logger used underneath the ectologger sink
func NewZap(cfg Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Pretty {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	z, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	if cfg.AppName != "" {
		z = z.With(zap.String("app", cfg.AppName))
	}
	return z, nil
}
