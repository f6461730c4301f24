package cryptominer

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/metricsrelay/dto"
	"github.com/customeros/metricsrelay/interfaces"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/models"
	"github.com/customeros/metricsrelay/internal/tracing"
	"github.com/customeros/metricsrelay/services/events"
)

const PropertyIsCryptominer = "isCryptominer"

type FlagCryptominerListener struct {
	events.BaseEventListener
	analytics interfaces.AnalyticsService
}

func NewFlagCryptominerListener(logger logger.Logger, analytics interfaces.AnalyticsService, queueName string) interfaces.EventListener {
	if queueName == "" {
		queueName = events.QueueFlagCryptominer
	}
	return &FlagCryptominerListener{
		BaseEventListener: events.NewBaseEventListener(
			logger,
			events.GetEventType[dto.FlagCryptominer](), // subscribed event
			queueName,
		),
		analytics: analytics,
	}
}

// Handle marks the subject as a cryptominer on its analytics profile. Malformed messages are
// logged and acknowledged; only a failed analytics call is returned, which dead-letters the message.
func (l *FlagCryptominerListener) Handle(ctx context.Context, baseEvent any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FlagCryptominerListener.Handle")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "event", baseEvent)

	validatedEvent, err := l.ValidateBaseEvent(ctx, baseEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		l.Logger().Errorf("Invalid cryptominer message: %v", err)
		return nil
	}

	flag, err := events.DecodeEventData[dto.FlagCryptominer](ctx, validatedEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		l.Logger().Errorf("Invalid cryptominer message data: %v", err)
		return nil
	}
	if !flag.Cryptominer {
		l.Logger().Errorf("Unexpected message; missing `cryptominer: true`. Is the %s queue bound correctly?", l.GetQueueName())
		return nil
	}
	if flag.UserSubjectId == "" {
		l.Logger().Error("Invalid message: missing userSubjectId")
		return nil
	}

	if !l.analytics.Enabled() {
		l.Logger().Warnf("No analytics token configured, cryptominer flag for %s not forwarded", flag.UserSubjectId)
		return nil
	}

	user := models.User{SubjectID: flag.UserSubjectId}
	err = l.analytics.Engage(ctx, dto.ProfileUpdate{
		Token:      l.analytics.Token(),
		DistinctId: user.DistinctID(),
		Set:        map[string]any{PropertyIsCryptominer: true},
	})
	if err != nil {
		tracing.TraceErr(span, err)
		l.Logger().Errorf("Failed to flag %s as cryptominer: %v", user.DistinctID(), err)
		return err
	}

	span.LogKV("result.flagged", user.DistinctID())
	return nil
}
