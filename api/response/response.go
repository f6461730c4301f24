package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/tracing"
	"github.com/customeros/metricsrelay/internal/utils"
)

// Mapper turns handler results into HTTP responses. Nothing else in the api writes a response.
type Mapper struct {
	log logger.Logger
}

func NewMapper(log logger.Logger) *Mapper {
	return &Mapper{log: log}
}

// Status maps err to a status code and a plain text body.
func Status(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}
	if classified, ok := relay_errors.AsClassified(err); ok {
		return classified.StatusCode, classified.Message
	}
	return http.StatusInternalServerError, err.Error()
}

// Write answers the request with the status and message carried by err.
func (m *Mapper) Write(c *gin.Context, err error) {
	status, body := m.resolve(c, err)
	if err == nil {
		c.Status(status)
		return
	}
	c.String(status, body)
}

// JSON answers a successful request with a JSON body.
func (m *Mapper) JSON(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// Abort is Write for middleware: remaining handlers in the chain are skipped.
func (m *Mapper) Abort(c *gin.Context, err error) {
	status, body := m.resolve(c, err)
	if err == nil {
		c.AbortWithStatus(status)
		return
	}
	c.Abort()
	c.String(status, body)
}

func (m *Mapper) resolve(c *gin.Context, err error) (int, string) {
	status, body := Status(err)
	if err == nil {
		return status, body
	}

	ctx := c.Request.Context()
	traceId := ""
	if span := opentracing.SpanFromContext(ctx); span != nil {
		tracing.TraceErr(span, err)
		span.SetTag("http.status_code", status)
		traceId = tracing.GetTraceId(span)
	}

	requestId := utils.GetRequestIdFromContext(ctx)
	if status >= http.StatusInternalServerError {
		m.log.Errorf("%s %s failed with %d [request %s, trace %s]: %v", c.Request.Method, c.Request.URL.Path, status, requestId, traceId, err)
	} else {
		m.log.Warnf("%s %s rejected with %d [request %s, trace %s]: %v", c.Request.Method, c.Request.URL.Path, status, requestId, traceId, err)
	}
	return status, body
}
