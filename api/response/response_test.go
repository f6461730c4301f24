package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/jaeger-client-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	mapper := NewMapper(logger.WrapZapLogger(zap.New(core)))

	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		c.Set("mapper", mapper)
		handler(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)
	return w, logs
}

func mapperFrom(c *gin.Context) *Mapper {
	return c.MustGet("mapper").(*Mapper)
}

func TestWrite_Success(t *testing.T) {
	w, logs := serve(t, func(c *gin.Context) {
		mapperFrom(c).Write(c, nil)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, 0, logs.Len())
}

func TestJSON(t *testing.T) {
	w, logs := serve(t, func(c *gin.Context) {
		mapperFrom(c).JSON(c, gin.H{"status": "ok"})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, 0, logs.Len())
}

func TestWrite_LogsTraceId(t *testing.T) {
	tracer, closer := jaeger.NewTracer("test", jaeger.NewConstSampler(true), jaeger.NewNullReporter())
	defer closer.Close()
	previous := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(previous)

	span := tracer.StartSpan("test")
	defer span.Finish()
	spanCtx, ok := span.Context().(jaeger.SpanContext)
	require.True(t, ok)

	_, logs := serve(t, func(c *gin.Context) {
		c.Request = c.Request.WithContext(opentracing.ContextWithSpan(c.Request.Context(), span))
		mapperFrom(c).Write(c, relay_errors.Forbidden())
	})

	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "trace "+spanCtx.TraceID().String())
}

func TestWrite_ClassifiedError(t *testing.T) {
	w, logs := serve(t, func(c *gin.Context) {
		mapperFrom(c).Write(c, relay_errors.Validation(`"event" is required`))
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `"event" is required`, w.Body.String())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestWrite_WrappedClassifiedErrorHidesCause(t *testing.T) {
	w, logs := serve(t, func(c *gin.Context) {
		err := relay_errors.Unreachable("auth", errors.New("dial tcp 10.0.0.1:443: connection refused"))
		mapperFrom(c).Write(c, errors.Wrap(err, "verify"))
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Unable to contact auth service", w.Body.String())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestWrite_UnclassifiedError(t *testing.T) {
	w, logs := serve(t, func(c *gin.Context) {
		mapperFrom(c).Write(c, errors.New("boom"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "boom", w.Body.String())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestAbort_SkipsRemainingHandlers(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	mapper := NewMapper(logger.WrapZapLogger(zap.New(core)))
	reached := false

	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		mapper.Abort(c, relay_errors.Forbidden())
	}, func(c *gin.Context) {
		reached = true
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", w.Body.String())
}

func TestStatus(t *testing.T) {
	status, body := Status(relay_errors.MetricsRejected(nil))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Error saving metrics data", body)

	status, body = Status(nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)
}
