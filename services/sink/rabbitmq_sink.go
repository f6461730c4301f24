package sink

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/metricsrelay/dto"
	"github.com/customeros/metricsrelay/interfaces"
	"github.com/customeros/metricsrelay/internal/tracing"
	"github.com/customeros/metricsrelay/internal/utils"
	"github.com/customeros/metricsrelay/services/events"
)

type rabbitMQSink struct {
	publisher interfaces.EventPublisher
}

// NewRabbitMQSink publishes records to the metrics events queue for downstream export.
func NewRabbitMQSink(publisher interfaces.EventPublisher) interfaces.LogSink {
	return &rabbitMQSink{publisher: publisher}
}

func (s *rabbitMQSink) Name() string {
	return NameRabbitMQ
}

func (s *rabbitMQSink) Write(ctx context.Context, record dto.LogRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQSink.Write")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEvent(span, record.EventName())

	entityId := record.StringProperty(dto.InternalPropertyRequestId)
	if entityId == "" {
		entityId = utils.GetRequestIdFromContext(ctx)
	}

	err := s.publisher.PublishDirectEvent(ctx, entityId, record, events.RoutingKeyMetricsEvent)
	if err != nil {
		err = errors.Wrap(err, "publish log record")
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// Close is a no-op: the publisher belongs to the events service and is closed with it.
func (s *rabbitMQSink) Close() error {
	return nil
}
