package interfaces

import (
	"context"

	"github.com/customeros/metricsrelay/internal/models"
)

type IdentityService interface {
	// GetSelfInfo forwards the caller's authorization header to the identity service.
	GetSelfInfo(ctx context.Context, authorization string) (*models.User, error)
}

type ProfileService interface {
	GetProfile(ctx context.Context, authorization string) (*Profile, error)
}

// Profile is the subset of the profile service response the relay uses.
type Profile struct {
	AnonymousGroup string
	Email          string
	AccountType    string
	EmailDomain    string
}
