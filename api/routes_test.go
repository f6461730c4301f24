package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/customeros/metricsrelay/dto"
	"github.com/customeros/metricsrelay/interfaces"
	"github.com/customeros/metricsrelay/internal/auth"
	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/models"
	"github.com/customeros/metricsrelay/services"
	"github.com/customeros/metricsrelay/services/relay"
)

const anonId = "3b241101-e2bb-4255-8caf-4136c566a962"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeIdentity struct {
	mu    sync.Mutex
	users map[string]*models.User
	calls int
}

func (f *fakeIdentity) GetSelfInfo(ctx context.Context, authorization string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	user, ok := f.users[authorization]
	if !ok {
		return nil, relay_errors.Unauthorized()
	}
	copied := *user
	return &copied, nil
}

func (f *fakeIdentity) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sentPayload struct {
	Endpoint interfaces.AnalyticsEndpoint
	Payload  any
}

type fakeAnalytics struct {
	mu    sync.Mutex
	token string
	err   error
	sent  []sentPayload
}

func (f *fakeAnalytics) Enabled() bool { return f.token != "" }
func (f *fakeAnalytics) Token() string { return f.token }

func (f *fakeAnalytics) Send(ctx context.Context, endpoint interfaces.AnalyticsEndpoint, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentPayload{Endpoint: endpoint, Payload: payload})
	return f.err
}

func (f *fakeAnalytics) Track(ctx context.Context, event dto.MetricsEvent) error {
	return f.Send(ctx, interfaces.AnalyticsTrack, event)
}

func (f *fakeAnalytics) Engage(ctx context.Context, update dto.ProfileUpdate) error {
	return f.Send(ctx, interfaces.AnalyticsEngage, update)
}

func (f *fakeAnalytics) Sent() []sentPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentPayload(nil), f.sent...)
}

type recordingSink struct {
	mu      sync.Mutex
	records []dto.LogRecord
}

func (s *recordingSink) Name() string { return "log" }
func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) Write(ctx context.Context, record dto.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *recordingSink) Records() []dto.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dto.LogRecord(nil), s.records...)
}

type fakeProfile struct {
	profile *interfaces.Profile
	err     error
}

func (f *fakeProfile) GetProfile(ctx context.Context, authorization string) (*interfaces.Profile, error) {
	return f.profile, f.err
}

type testRouter struct {
	router    *gin.Engine
	identity  *fakeIdentity
	analytics *fakeAnalytics
	sink      *recordingSink
	cache     interfaces.AuthCache
}

func newTestRouter(t *testing.T, cfg RouterConfig) *testRouter {
	t.Helper()
	log := logger.WrapZapLogger(zap.NewNop())

	identity := &fakeIdentity{users: map[string]*models.User{}}
	analytics := &fakeAnalytics{token: "mp-token"}
	sink := &recordingSink{}
	cache := auth.NewCache(100)

	s := &services.Services{
		AuthCache:        cache,
		AuthVerifier:     auth.NewVerifier(identity, cache, 5*time.Minute, log),
		IdentityService:  identity,
		ProfileService:   &fakeProfile{profile: &interfaces.Profile{AnonymousGroup: "anon@groups.example.org", Email: "jane@broadinstitute.org", AccountType: "Broad User", EmailDomain: "broadinstitute.org"}},
		AnalyticsService: analytics,
		Relay:            relay.NewRelay(sink, analytics, log),
	}

	router := gin.New()
	RegisterRoutes(router, s, cfg, log)
	return &testRouter{router: router, identity: identity, analytics: analytics, sink: sink, cache: cache}
}

// withUser registers a user with the identity fake and returns the Authorization header for it
func (tr *testRouter) withUser(t *testing.T, email, subjectId string, enabled bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": email, "sub": subjectId})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	header := "Bearer " + signed
	tr.identity.users[header] = &models.User{SubjectID: subjectId, Enabled: enabled}
	return header
}

func (tr *testRouter) do(method, path, body, authorization string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	tr.router.ServeHTTP(w, req)
	return w
}

func TestStatus(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})

	w := tr.do(http.MethodGet, "/status", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "max-age=31536000; includeSubDomains; preload", w.Header().Get("Strict-Transport-Security"))
}

func TestHealth(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})

	w := tr.do(http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>docs</html>"), 0o600))
	tr := newTestRouter(t, RouterConfig{DocsDir: dir})

	w := tr.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/docs/", w.Header().Get("Location"))

	w = tr.do(http.MethodGet, "/docs/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docs")
}

func TestEvent_AnonymousIsLoggedAndForwarded(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})

	w := tr.do(http.MethodPost, "/api/event", `{"event":"foo","properties":{"appId":"x","distinct_id":"`+anonId+`"}}`, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, w.Body.String())

	records := tr.sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "foo", records[0].EventName())
	assert.Equal(t, anonId, records[0].StringProperty("distinct_id"))
	assert.NotEmpty(t, records[0].StringProperty(dto.InternalPropertyRequestId))
	assert.NotContains(t, records[0].Properties(), "token")

	sent := tr.analytics.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, interfaces.AnalyticsTrack, sent[0].Endpoint)
	event := sent[0].Payload.(dto.MetricsEvent)
	assert.Equal(t, "foo", event.Event)
	assert.Equal(t, "mp-token", event.Properties["token"])
	assert.Equal(t, anonId, event.Properties["distinct_id"])
	assert.NotContains(t, event.Properties, dto.InternalPropertyRequestId)
}

func TestEvent_MissingDistinctIdIsRejected(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})

	w := tr.do(http.MethodPost, "/api/event", `{"event":"foo","properties":{"appId":"x"}}`, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `"properties.distinct_id" is required`, w.Body.String())
	assert.Empty(t, tr.sink.Records())
	assert.Empty(t, tr.analytics.Sent())
}

func TestEvent_DisabledUserIsForbidden(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})
	authorization := tr.withUser(t, "jane@example.org", "42", false)

	w := tr.do(http.MethodPost, "/api/event", `{"event":"foo","properties":{"appId":"x"}}`, authorization)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", w.Body.String())
	assert.Empty(t, tr.sink.Records())
	assert.Empty(t, tr.analytics.Sent())
}

func TestEvent_CachedDisabledUserSkipsIdentity(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})
	authorization := tr.withUser(t, "jane@example.org", "42", false)

	first := tr.do(http.MethodPost, "/api/event", `{"event":"foo","properties":{"appId":"x"}}`, authorization)
	second := tr.do(http.MethodPost, "/api/event", `{"event":"foo","properties":{"appId":"x"}}`, authorization)

	assert.Equal(t, http.StatusForbidden, first.Code)
	assert.Equal(t, http.StatusForbidden, second.Code)
	assert.Equal(t, 1, tr.identity.Calls())
}

func TestEvent_AuthenticatedUsesSubjectId(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})
	authorization := tr.withUser(t, "jane@example.org", "42", true)

	w := tr.do(http.MethodPost, "/api/event", `{"event":"foo","properties":{"appId":"x"}}`, authorization)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = tr.do(http.MethodPost, "/api/event", `{"event":"bar","properties":{"appId":"x"}}`, authorization)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, 1, tr.identity.Calls())
	assert.Equal(t, 1, tr.cache.Len())

	sent := tr.analytics.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "google:42", sent[0].Payload.(dto.MetricsEvent).Properties["distinct_id"])

	records := tr.sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "42", records[0].StringProperty(dto.InternalPropertyUserSubjectId))
}

func TestEvent_AuthenticatedDistinctIdIsRejected(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})
	authorization := tr.withUser(t, "jane@example.org", "42", true)

	w := tr.do(http.MethodPost, "/api/event", `{"event":"foo","properties":{"appId":"x","distinct_id":"`+anonId+`"}}`, authorization)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `"properties.distinct_id" is not allowed`, w.Body.String())
	assert.Empty(t, tr.analytics.Sent())
}

func TestEvent_MalformedTokenIsRejectedBeforeCache(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})

	for _, path := range []string{"/api/event", "/api/identify"} {
		w := tr.do(http.MethodPost, path, `{"event":"foo","properties":{"appId":"x"}}`, "Bearer not-a-jwt")

		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Invalid authorization token", w.Body.String(), path)
	}
	assert.Equal(t, 0, tr.identity.Calls())
	assert.Equal(t, 0, tr.cache.Len())
}

func TestEvent_PushToMixpanelFalseOnlyLogs(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})

	w := tr.do(http.MethodPost, "/api/event", `{"event":"foo","properties":{"appId":"x","distinct_id":"`+anonId+`","pushToMixpanel":false}}`, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, tr.sink.Records(), 1)
	assert.Empty(t, tr.analytics.Sent())
}

func TestEvent_SameEventTwiceIsRelayedTwice(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})
	body := `{"event":"foo","properties":{"appId":"x","distinct_id":"` + anonId + `"}}`

	assert.Equal(t, http.StatusOK, tr.do(http.MethodPost, "/api/event", body, "").Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPost, "/api/event", body, "").Code)

	assert.Len(t, tr.sink.Records(), 2)
	assert.Len(t, tr.analytics.Sent(), 2)
}

func TestEvent_BackendRejection(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})
	tr.analytics.err = relay_errors.MetricsRejected(nil)

	w := tr.do(http.MethodPost, "/api/event", `{"event":"foo","properties":{"appId":"x","distinct_id":"`+anonId+`"}}`, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Error saving metrics data", w.Body.String())
	assert.Len(t, tr.sink.Records(), 1)
}

func TestEvent_InvalidBody(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})

	w := tr.do(http.MethodPost, "/api/event", `[1,2]`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `"value" must be of type object`, w.Body.String())

	w = tr.do(http.MethodPost, "/api/event", `{"event":`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = tr.do(http.MethodPost, "/api/event", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `"event" is required`, w.Body.String())
}

func TestEvent_FailedRequestIsThrottled(t *testing.T) {
	delay := 50 * time.Millisecond
	tr := newTestRouter(t, RouterConfig{FailedRequestDelay: delay})

	start := time.Now()
	w := tr.do(http.MethodPost, "/api/event", `{"event":"request:failed","properties":{"appId":"x"}}`, "Bearer whatever")
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.GreaterOrEqual(t, elapsed, delay)

	records := tr.sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "request:failed", records[0].EventName())
	assert.Equal(t, "request:failed", records[0].StringProperty("event"))
	assert.NotEmpty(t, records[0].StringProperty(dto.InternalPropertyRequestId))
	assert.Empty(t, tr.analytics.Sent())
	assert.Equal(t, 0, tr.identity.Calls())
}

func TestEvent_OversizedBodyIsRejected(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{MaxBodyBytes: 64, FailedRequestDelay: time.Minute})
	body := `{"event":"request:failed","properties":{"padding":"` + strings.Repeat("x", 128) + `"}}`

	w := tr.do(http.MethodPost, "/api/event", body, "")

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Request body too large", w.Body.String())
	assert.Empty(t, tr.sink.Records())
	assert.Empty(t, tr.analytics.Sent())
}

func TestIdentify_OversizedBodyIsRejected(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{MaxBodyBytes: 64})
	header := tr.withUser(t, "jane@example.org", "42", true)
	body := `{"anonId":"` + anonId + `","padding":"` + strings.Repeat("x", 128) + `"}`

	w := tr.do(http.MethodPost, "/api/identify", body, header)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, tr.sink.Records())
}

func TestIdentify(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})
	authorization := tr.withUser(t, "jane@example.org", "42", true)

	w := tr.do(http.MethodPost, "/api/identify", `{"anonId":"`+anonId+`"}`, authorization)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := tr.analytics.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, interfaces.AnalyticsTrack, sent[0].Endpoint)
	assert.Equal(t, dto.MetricsEvent{
		Event: "$identify",
		Properties: map[string]any{
			"$identified_id": "google:42",
			"$anon_id":       anonId,
			"token":          "mp-token",
		},
	}, sent[0].Payload)

	records := tr.sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "google:42", records[0].DistinctID())
}

func TestIdentify_RequiresAuth(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})

	w := tr.do(http.MethodPost, "/api/identify", `{"anonId":"`+anonId+`"}`, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", w.Body.String())
	assert.Empty(t, tr.analytics.Sent())
}

func TestIdentify_InvalidAnonId(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})
	authorization := tr.withUser(t, "jane@example.org", "42", true)

	w := tr.do(http.MethodPost, "/api/identify", `{"anonId":"not-a-uuid"}`, authorization)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `"anonId" must be a valid GUID`, w.Body.String())
}

func TestSyncProfile(t *testing.T) {
	tr := newTestRouter(t, RouterConfig{})
	authorization := tr.withUser(t, "jane@broadinstitute.org", "42", true)

	w := tr.do(http.MethodPost, "/api/syncProfile", "", authorization)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := tr.analytics.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, interfaces.AnalyticsEngage, sent[0].Endpoint)
	assert.Equal(t, dto.ProfileUpdate{
		Token:      "mp-token",
		DistinctId: "google:42",
		Set: map[string]any{
			"$email":       "anon@groups.example.org",
			"$accountType": "Broad User",
			"$emailDomain": "broadinstitute.org",
		},
	}, sent[0].Payload)

	records := tr.sink.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].IsProfileUpdate())
	assert.NotContains(t, records[0], "$token")
}
