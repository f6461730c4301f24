package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/tracing"
)

const (
	DefaultTimeout = 30 * time.Second

	// how much of a failed response body is kept for diagnostics
	maxErrorBodyBytes = 1024
)

// Client performs outbound calls and classifies their failures per service name.
type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// NewClientWithHTTP wraps an existing http client, used by tests with httptest servers.
func NewClientWithHTTP(httpClient *http.Client) *Client {
	return &Client{http: httpClient}
}

// FetchOK sends req and returns the response when its status is 2xx.
// A transport failure maps to 503 "Unable to contact", a 401 to 401 "Unauthorized"
// and any other non success status to 503 "Failed to query". The caller closes the body.
func (c *Client) FetchOK(ctx context.Context, serviceName string, req *http.Request) (*http.Response, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Upstream.FetchOK")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("upstream.service", serviceName)
	span.LogKV("request.method", req.Method, "request.url", req.URL.String())

	// outbound calls run to completion even if the inbound request goes away
	req = req.WithContext(context.WithoutCancel(ctx))
	req = tracing.InjectSpanContextIntoHTTPRequest(req, span)

	resp, err := c.http.Do(req)
	if err != nil {
		classified := relay_errors.Unreachable(serviceName, err)
		tracing.TraceErr(span, classified)
		return nil, classified
	}
	span.SetTag("http.status_code", resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp)
		classified := relay_errors.Unauthorized()
		tracing.TraceErr(span, classified)
		return nil, classified
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		drainAndClose(resp)
		classified := relay_errors.QueryFailed(serviceName,
			errors.Errorf("%s error: status %d: %s", serviceName, resp.StatusCode, string(body)))
		tracing.TraceErr(span, classified)
		return nil, classified
	}
	return resp, nil
}

// GetJSON issues a GET forwarding the caller's authorization header and decodes the JSON answer into out.
func (c *Client) GetJSON(ctx context.Context, serviceName, url, authorization string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "build %s request", serviceName)
	}
	req.Header.Set("Accept", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.FetchOK(ctx, serviceName, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = relay_errors.ErrEmptyResponse
		}
		return relay_errors.QueryFailed(serviceName, errors.Wrapf(err, "decode %s response", serviceName))
	}
	return nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	_ = resp.Body.Close()
}
