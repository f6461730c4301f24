package analytics

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/metricsrelay/dto"
	"github.com/customeros/metricsrelay/interfaces"
	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/tracing"
	"github.com/customeros/metricsrelay/services/upstream"
)

const (
	ServiceName    = "metrics"
	DefaultBaseURL = "https://api.mixpanel.com"

	// body the backend answers with when it accepted the payload
	acceptedBody = "1"
)

type analyticsService struct {
	baseURL string
	token   string
	client  *upstream.Client
	log     logger.Logger
}

// NewAnalyticsService returns a client for the analytics ingestion API. An empty token
// yields a disabled service and callers are expected to skip forwarding.
func NewAnalyticsService(baseURL, token string, client *upstream.Client, log logger.Logger) interfaces.AnalyticsService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &analyticsService{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		log:     log,
	}
}

func (s *analyticsService) Enabled() bool {
	return s.token != ""
}

func (s *analyticsService) Token() string {
	return s.token
}

func (s *analyticsService) Track(ctx context.Context, event dto.MetricsEvent) error {
	return s.Send(ctx, interfaces.AnalyticsTrack, event)
}

func (s *analyticsService) Engage(ctx context.Context, update dto.ProfileUpdate) error {
	return s.Send(ctx, interfaces.AnalyticsEngage, update)
}

// Send posts payload as base64 encoded JSON in the "data" form field.
func (s *analyticsService) Send(ctx context.Context, endpoint interfaces.AnalyticsEndpoint, payload any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AnalyticsService.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("analytics.endpoint", string(endpoint))

	raw, err := json.Marshal(payload)
	if err != nil {
		err = errors.Wrap(err, "marshal analytics payload")
		tracing.TraceErr(span, err)
		return err
	}

	form := url.Values{}
	form.Set("data", base64.StdEncoding.EncodeToString(raw))
	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/"+string(endpoint), strings.NewReader(form.Encode()))
	if err != nil {
		err = errors.Wrap(err, "build analytics request")
		tracing.TraceErr(span, err)
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.FetchOK(ctx, ServiceName, req)
	if err != nil {
		// a 401 here is about the server held token, never the caller's
		if relay_errors.IsKind(err, relay_errors.AuthRejected) {
			err = relay_errors.QueryFailed(ServiceName, errors.Wrap(err, "analytics token rejected"))
		}
		tracing.TraceErr(span, err)
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = relay_errors.QueryFailed(ServiceName, errors.Wrap(err, "read analytics response"))
		tracing.TraceErr(span, err)
		return err
	}
	if status := strings.TrimSpace(string(body)); status != acceptedBody {
		s.log.Errorf("Failed to log to analytics backend, endpoint %s answered %q: %s", endpoint, status, redacted(payload))
		err = relay_errors.MetricsRejected(errors.Errorf("analytics backend answered %q", status))
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// redacted renders payload for logs with the analytics token stripped.
func redacted(payload any) string {
	record, err := dto.NewLogRecord(payload, nil)
	if err != nil {
		return "<unloggable payload>"
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return "<unloggable payload>"
	}
	return string(raw)
}
