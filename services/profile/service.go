package profile

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/metricsrelay/dto"
	"github.com/customeros/metricsrelay/interfaces"
	"github.com/customeros/metricsrelay/internal/tracing"
	"github.com/customeros/metricsrelay/services/upstream"
)

const (
	ServiceName = "profile"
	profilePath = "/register/profile"

	keyAnonymousGroup = "anonymousGroup"
	keyEmail          = "email"
)

type profileService struct {
	baseURL string
	client  *upstream.Client
}

func NewProfileService(baseURL string, client *upstream.Client) interfaces.ProfileService {
	return &profileService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *profileService) GetProfile(ctx context.Context, authorization string) (*interfaces.Profile, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ProfileService.GetProfile")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	var response dto.ProfileResponse
	if err := s.client.GetJSON(ctx, ServiceName, s.baseURL+profilePath, authorization, &response); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	email := response.Get(keyEmail)
	profile := &interfaces.Profile{
		AnonymousGroup: response.Get(keyAnonymousGroup),
		Email:          email,
		AccountType:    AccountType(email),
		EmailDomain:    EmailDomain(email),
	}
	span.LogKV("response.accountType", profile.AccountType, "response.emailDomain", profile.EmailDomain)
	return profile, nil
}
