package identity

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/metricsrelay/interfaces"
	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/models"
	"github.com/customeros/metricsrelay/internal/tracing"
	"github.com/customeros/metricsrelay/services/upstream"
)

const (
	ServiceName  = "auth"
	selfInfoPath = "/register/user/v2/self/info"
)

type identityService struct {
	baseURL string
	client  *upstream.Client
}

func NewIdentityService(baseURL string, client *upstream.Client) interfaces.IdentityService {
	return &identityService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *identityService) GetSelfInfo(ctx context.Context, authorization string) (*models.User, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IdentityService.GetSelfInfo")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	var user models.User
	if err := s.client.GetJSON(ctx, ServiceName, s.baseURL+selfInfoPath, authorization, &user); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if user.SubjectID == "" {
		err := relay_errors.QueryFailed(ServiceName, errors.New("identity response has no subject id"))
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.LogKV("response.subjectId", user.SubjectID, "response.enabled", user.Enabled)
	return &user, nil
}
