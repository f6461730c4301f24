package interfaces

import (
	"context"

	"github.com/customeros/metricsrelay/dto"
)

// AnalyticsEndpoint names an ingestion endpoint of the analytics backend.
type AnalyticsEndpoint string

const (
	AnalyticsTrack  AnalyticsEndpoint = "track"
	AnalyticsEngage AnalyticsEndpoint = "engage"
)

type AnalyticsService interface {
	// Enabled is false when no API token is configured; nothing is forwarded then.
	Enabled() bool
	Token() string
	Send(ctx context.Context, endpoint AnalyticsEndpoint, payload any) error
	Track(ctx context.Context, event dto.MetricsEvent) error
	Engage(ctx context.Context, update dto.ProfileUpdate) error
}
