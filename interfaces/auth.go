package interfaces

import (
	"context"
	"time"

	"github.com/customeros/metricsrelay/internal/models"
)

type AuthCache interface {
	Get(key string) (models.User, bool)
	Set(key string, user models.User, ttl time.Duration)
	Len() int
	// Purge drops expired entries and returns how many were removed.
	Purge() int
}

type AuthVerifier interface {
	// Verify returns (nil, nil) when no token is supplied and auth is optional.
	Verify(ctx context.Context, authorization string, optional bool) (*models.User, error)
}
