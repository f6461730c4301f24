package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/customeros/metricsrelay/dto"
	"github.com/customeros/metricsrelay/interfaces"
	"github.com/customeros/metricsrelay/internal/logger"
)

const (
	NameLog       = "log"
	NameRabbitMQ  = "rabbitmq"
	NameWarehouse = "warehouse"

	DefaultLogName = "metrics"
)

type logSink struct {
	log *zap.Logger
}

// NewLogSink writes every record as one structured entry on a dedicated named logger.
func NewLogSink(log logger.Logger, logName string) interfaces.LogSink {
	if logName == "" {
		logName = DefaultLogName
	}
	return &logSink{log: log.Named(logName).Logger()}
}

func (s *logSink) Name() string {
	return NameLog
}

func (s *logSink) Write(_ context.Context, record dto.LogRecord) error {
	s.log.Info("metrics event",
		zap.String("event", record.EventName()),
		zap.Any("record", map[string]any(record)),
	)
	return nil
}

func (s *logSink) Close() error {
	// stdout sync errors are not actionable
	_ = s.log.Sync()
	return nil
}
