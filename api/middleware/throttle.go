package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/metricsrelay/api/response"
	"github.com/customeros/metricsrelay/dto"
	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/tracing"
	"github.com/customeros/metricsrelay/internal/utils"
	"github.com/customeros/metricsrelay/services/relay"
)

const FailedRequestEvent = "request:failed"

type Dispatcher interface {
	Dispatch(ctx context.Context, delivery relay.Delivery) relay.Outcome
}

// FailedRequestThrottle answers "request:failed" events itself: the event is logged without
// auth, validation or analytics forwarding, and the response is held back for delay.
// Any other body is restored and handed on to the rest of the chain.
func FailedRequestThrottle(dispatcher Dispatcher, mapper *response.Mapper, delay time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil {
			c.Next()
			return
		}
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			mapper.Abort(c, relay_errors.BodyUnreadable(err))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		var body map[string]any
		if json.Unmarshal(raw, &body) != nil || body["event"] != FailedRequestEvent {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "FailedRequestThrottle")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)
		tracing.TagEvent(span, FailedRequestEvent)

		record, err := dto.NewLogRecord(failedRequestPayload(body), dto.InternalProperties("", utils.GetRequestIdFromContext(ctx)))
		if err != nil {
			tracing.TraceErr(span, err)
			mapper.Abort(c, err)
			return
		}

		outcome := dispatcher.Dispatch(ctx, relay.Delivery{Record: record, Forward: false})
		if !outcome.OK() {
			mapper.Abort(c, outcome.Err())
			return
		}

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			span.LogKV("result", "client went away during delay")
		}

		mapper.Abort(c, nil)
	}
}

func failedRequestPayload(body map[string]any) map[string]any {
	properties := map[string]any{}
	if original, ok := body["properties"].(map[string]any); ok {
		for k, v := range original {
			properties[k] = v
		}
	}
	properties["event"] = FailedRequestEvent

	payload := map[string]any{}
	for k, v := range body {
		payload[k] = v
	}
	payload["properties"] = properties
	return payload
}
