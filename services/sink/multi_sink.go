package sink

import (
	"context"

	"go.uber.org/multierr"

	"github.com/customeros/metricsrelay/dto"
	"github.com/customeros/metricsrelay/interfaces"
)

// MultiSink appends to every configured sink and fails if any of them fails.
type MultiSink struct {
	sinks []interfaces.LogSink
}

func NewMultiSink(sinks ...interfaces.LogSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Name() string {
	return NameLog
}

func (m *MultiSink) Write(ctx context.Context, record dto.LogRecord) error {
	var err error
	for _, s := range m.sinks {
		if writeErr := s.Write(ctx, record); writeErr != nil {
			err = multierr.Append(err, &SinkError{Sink: s.Name(), Err: writeErr})
		}
	}
	return err
}

func (m *MultiSink) Close() error {
	var err error
	for _, s := range m.sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}

// Sinks lists the names of the wrapped sinks.
func (m *MultiSink) Sinks() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return names
}

// SinkError names the sink a write failed on.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return e.Sink + " sink: " + e.Err.Error()
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
