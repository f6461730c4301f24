package handlers

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/metricsrelay/api/middleware"
	"github.com/customeros/metricsrelay/dto"
	"github.com/customeros/metricsrelay/interfaces"
	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/models"
	"github.com/customeros/metricsrelay/internal/tracing"
	"github.com/customeros/metricsrelay/internal/utils"
	"github.com/customeros/metricsrelay/internal/validation"
	"github.com/customeros/metricsrelay/services/relay"
)

const (
	IdentifyEvent = "$identify"

	// properties.pushToMixpanel=false keeps an event out of the analytics backend
	PropertyPushToAnalytics = "pushToMixpanel"
)

type Dispatcher = middleware.Dispatcher

type MetricsHandler struct {
	relay     Dispatcher
	analytics interfaces.AnalyticsService
	profile   interfaces.ProfileService
}

func NewMetricsHandler(relay Dispatcher, analytics interfaces.AnalyticsService, profile interfaces.ProfileService) *MetricsHandler {
	return &MetricsHandler{
		relay:     relay,
		analytics: analytics,
		profile:   profile,
	}
}

// Event logs a client event and forwards it to the analytics backend
func (h *MetricsHandler) Event(c *gin.Context) error {
	span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "MetricsHandler.Event")
	defer span.Finish()
	tracing.SetDefaultRestSpanTags(ctx, span)

	user := middleware.UserFromContext(c)

	body, err := decodeBody(c)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	payload, err := validation.ValidateBody(body, validation.EventSchema, user != nil)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	eventName, _ := payload["event"].(string)
	tracing.TagEvent(span, eventName)

	properties := map[string]any{}
	for k, v := range payload["properties"].(map[string]any) {
		properties[k] = v
	}
	if token := h.analytics.Token(); token != "" {
		properties["token"] = token
	}
	if user != nil {
		properties["distinct_id"] = user.DistinctID()
	}

	event := dto.MetricsEvent{Event: eventName, Properties: properties}
	record, err := dto.NewLogRecord(event, internalProperties(c, user))
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	outcome := h.relay.Dispatch(ctx, relay.Delivery{
		Record:   record,
		Endpoint: interfaces.AnalyticsTrack,
		Payload:  event,
		Forward:  properties[PropertyPushToAnalytics] != false,
	})
	return outcome.Err()
}

// Identify merges an anonymous analytics id into the verified user's id
func (h *MetricsHandler) Identify(c *gin.Context) error {
	span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "MetricsHandler.Identify")
	defer span.Finish()
	tracing.SetDefaultRestSpanTags(ctx, span)
	tracing.TagEvent(span, IdentifyEvent)

	user := middleware.UserFromContext(c)
	if user == nil {
		return relay_errors.Unauthorized()
	}

	body, err := decodeBody(c)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	payload, err := validation.ValidateBody(body, validation.IdentifySchema, true)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	properties := map[string]any{
		"$identified_id": user.DistinctID(),
		"$anon_id":       payload["anonId"],
	}
	if token := h.analytics.Token(); token != "" {
		properties["token"] = token
	}

	event := dto.MetricsEvent{Event: IdentifyEvent, Properties: properties}
	record, err := dto.NewLogRecord(event, internalProperties(c, user))
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	outcome := h.relay.Dispatch(ctx, relay.Delivery{
		Record:   record,
		Endpoint: interfaces.AnalyticsTrack,
		Payload:  event,
		Forward:  true,
	})
	return outcome.Err()
}

// SyncProfile copies the caller's profile from the profile service into the analytics backend
func (h *MetricsHandler) SyncProfile(c *gin.Context) error {
	span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "MetricsHandler.SyncProfile")
	defer span.Finish()
	tracing.SetDefaultRestSpanTags(ctx, span)

	user := middleware.UserFromContext(c)
	if user == nil {
		return relay_errors.Unauthorized()
	}

	profile, err := h.profile.GetProfile(ctx, c.GetHeader("Authorization"))
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	// the profile service user id is not always the identity subject id; the latter is used everywhere
	update := dto.ProfileUpdate{
		Token:      h.analytics.Token(),
		DistinctId: user.DistinctID(),
		Set: map[string]any{
			"$email":       profile.AnonymousGroup,
			"$accountType": profile.AccountType,
			"$emailDomain": profile.EmailDomain,
		},
	}
	record, err := dto.NewLogRecord(update, internalProperties(c, user))
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	outcome := h.relay.Dispatch(ctx, relay.Delivery{
		Record:   record,
		Endpoint: interfaces.AnalyticsEngage,
		Payload:  update,
		Forward:  true,
	})
	return outcome.Err()
}

func internalProperties(c *gin.Context, user *models.User) map[string]any {
	subjectId := ""
	if user != nil {
		subjectId = user.SubjectID
	}
	return dto.InternalProperties(subjectId, utils.GetRequestIdFromContext(c.Request.Context()))
}

// decodeBody reads the JSON body. An empty body decodes to an empty object.
func decodeBody(c *gin.Context) (any, error) {
	if c.Request.Body == nil {
		return map[string]any{}, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, relay_errors.BodyUnreadable(err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var body any
	if err = json.Unmarshal(raw, &body); err != nil {
		return nil, relay_errors.Validation("Invalid JSON body")
	}
	return body, nil
}
