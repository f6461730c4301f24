package interfaces

import (
	"context"

	"github.com/customeros/metricsrelay/dto"
)

// LogSink is an append only destination for relayed records.
type LogSink interface {
	Name() string
	Write(ctx context.Context, record dto.LogRecord) error
	Close() error
}

type SecretProvider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}
