package auth

import (
	"context"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/metricsrelay/interfaces"
	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/models"
	"github.com/customeros/metricsrelay/internal/tracing"
)

type verifier struct {
	identity interfaces.IdentityService
	cache    interfaces.AuthCache
	ttl      time.Duration
	log      logger.Logger
}

func NewVerifier(identity interfaces.IdentityService, cache interfaces.AuthCache, ttl time.Duration, log logger.Logger) interfaces.AuthVerifier {
	return &verifier{
		identity: identity,
		cache:    cache,
		ttl:      ttl,
		log:      log,
	}
}

func (v *verifier) Verify(ctx context.Context, authorization string, optional bool) (*models.User, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AuthVerifier.Verify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("request.optional", optional)

	if strings.TrimSpace(authorization) == "" {
		if optional {
			span.LogKV("result", "unauthenticated")
			return nil, nil
		}
		err := relay_errors.Unauthorized()
		tracing.TraceErr(span, err)
		return nil, err
	}

	claims, err := DecodeToken(authorization)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	user, hit := v.cache.Get(claims.Email)
	span.LogKV("cache.hit", hit)
	if !hit {
		fetched, err := v.identity.GetSelfInfo(ctx, authorization)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		user = *fetched
		if user.Email == "" {
			user.Email = claims.Email
		}
		v.cache.Set(claims.Email, user, v.ttl)
		v.log.Debugf("cached identity for subject %s", user.SubjectID)
	}

	if !user.Enabled {
		err := relay_errors.Forbidden()
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.LogKV("result.subjectId", user.SubjectID)
	return &user, nil
}
