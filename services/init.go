package services

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/customeros/metricsrelay/config"
	"github.com/customeros/metricsrelay/interfaces"
	"github.com/customeros/metricsrelay/internal/auth"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/repository"
	"github.com/customeros/metricsrelay/internal/utils"
	"github.com/customeros/metricsrelay/services/analytics"
	"github.com/customeros/metricsrelay/services/cryptominer"
	"github.com/customeros/metricsrelay/services/events"
	"github.com/customeros/metricsrelay/services/identity"
	"github.com/customeros/metricsrelay/services/profile"
	"github.com/customeros/metricsrelay/services/relay"
	"github.com/customeros/metricsrelay/services/secrets"
	"github.com/customeros/metricsrelay/services/sink"
	"github.com/customeros/metricsrelay/services/upstream"
)

type Services struct {
	AuthCache        interfaces.AuthCache
	AuthVerifier     interfaces.AuthVerifier
	IdentityService  interfaces.IdentityService
	ProfileService   interfaces.ProfileService
	AnalyticsService interfaces.AnalyticsService
	LogSink          *sink.MultiSink
	Relay            *relay.Relay
	// EventsService is nil unless a RabbitMQ backed feature is enabled
	EventsService *events.EventsService
}

// InitServices wires every service from configuration. repos may be nil when the warehouse sink is not used.
func InitServices(ctx context.Context, cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	// auth
	authCache := auth.NewCache(cfg.AuthConfig.CacheCapacity)
	identityService := identity.NewIdentityService(cfg.AuthConfig.IdentityURL, upstream.NewClient(cfg.AuthConfig.RequestTimeout))
	verifier := auth.NewVerifier(identityService, authCache, cfg.AuthConfig.CacheTTL, log)

	// analytics
	token := secrets.ResolveAnalyticsToken(ctx, cfg.AnalyticsConfig.Token, cfg.AnalyticsConfig.TokenSecretName, secretProvider(cfg, log), log)
	analyticsService := analytics.NewAnalyticsService(cfg.AnalyticsConfig.Url, token, upstream.NewClient(cfg.AnalyticsConfig.RequestTimeout), log)

	// events
	var eventsService *events.EventsService
	if utils.IsStringInSlice(sink.NameRabbitMQ, cfg.SinkConfig.Sinks) || cfg.CryptominerConfig.Enabled {
		if cfg.SinkConfig.RabbitMQURL == "" {
			return nil, errors.New("RABBITMQ_URL is required for the rabbitmq sink and the cryptominer listener")
		}
		var err error
		eventsService, err = events.NewEventsService(cfg.SinkConfig.RabbitMQURL, log, events.DefaultPublisherConfig())
		if err != nil {
			return nil, errors.Wrap(err, "Failed to connect events service")
		}
	}

	// sinks
	logSinks := make([]interfaces.LogSink, 0, len(cfg.SinkConfig.Sinks))
	for _, name := range cfg.SinkConfig.Sinks {
		switch name {
		case sink.NameLog:
			logSinks = append(logSinks, sink.NewLogSink(log, cfg.SinkConfig.LogName))
		case sink.NameRabbitMQ:
			logSinks = append(logSinks, sink.NewRabbitMQSink(eventsService.Publisher))
		case sink.NameWarehouse:
			if repos == nil {
				return nil, errors.New("warehouse sink requires the warehouse database")
			}
			logSinks = append(logSinks, sink.NewWarehouseSink(repos.EventRecordRepository))
		default:
			return nil, errors.Errorf("unknown log sink %q", name)
		}
	}
	if len(logSinks) == 0 {
		logSinks = append(logSinks, sink.NewLogSink(log, cfg.SinkConfig.LogName))
	}
	logSink := sink.NewMultiSink(logSinks...)
	log.Infof("Relaying to log sinks %v, analytics forwarding enabled: %t", logSink.Sinks(), analyticsService.Enabled())

	return &Services{
		AuthCache:        authCache,
		AuthVerifier:     verifier,
		IdentityService:  identityService,
		ProfileService:   profile.NewProfileService(cfg.ProfileConfig.ProfileURL, upstream.NewClient(cfg.ProfileConfig.RequestTimeout)),
		AnalyticsService: analyticsService,
		LogSink:          logSink,
		Relay:            relay.NewRelay(logSink, analyticsService, log, relay.WithSinkFailureFatal(cfg.AppConfig.LogSinkFailureFatal)),
		EventsService:    eventsService,
	}, nil
}

// StartListeners subscribes the RabbitMQ listeners that are enabled in configuration
func (s *Services) StartListeners(cfg *config.Config, log logger.Logger) error {
	if !cfg.CryptominerConfig.Enabled {
		return nil
	}

	err := s.EventsService.StartSubscriber(cfg.SinkConfig.RabbitMQURL, log, &events.SubscriberConfig{
		MaxRetries:          events.DefaultMaxRetries,
		ReconnectBackoff:    events.DefaultReconnectBackoff,
		MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
	})
	if err != nil {
		return errors.Wrap(err, "Failed to start events subscriber")
	}

	listener := cryptominer.NewFlagCryptominerListener(log, s.AnalyticsService, cfg.CryptominerConfig.Queue)
	s.EventsService.Subscriber.RegisterListener(listener)
	return s.EventsService.Subscriber.ListenQueue(listener.GetQueueName())
}

func (s *Services) Close() error {
	err := s.LogSink.Close()
	if s.EventsService != nil {
		err = multierr.Append(err, s.EventsService.Close())
	}
	return err
}

func secretProvider(cfg *config.Config, log logger.Logger) interfaces.SecretProvider {
	if cfg.AnalyticsConfig.Token != "" || cfg.AnalyticsConfig.AWSRegion == "" {
		return nil
	}
	provider, err := secrets.NewAWSSecretProvider(cfg.AnalyticsConfig.AWSRegion)
	if err != nil {
		log.Warnf("Unable to create secrets manager client: %v", err)
		return nil
	}
	return provider
}
