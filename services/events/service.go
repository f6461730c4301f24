package events

import (
	"go.uber.org/multierr"

	"github.com/customeros/metricsrelay/internal/logger"
)

type EventsService struct {
	Publisher  *RabbitMQPublisher
	Subscriber *RabbitMQSubscriber
}

func NewEventsService(rabbitmqURL string, log logger.Logger, publisherConfig *PublisherConfig) (*EventsService, error) {
	publisher, err := NewRabbitMQPublisher(rabbitmqURL, log, publisherConfig)
	if err != nil {
		return nil, err
	}

	return &EventsService{
		Publisher: publisher,
	}, nil
}

// StartSubscriber connects a subscriber on the same broker. Listeners are registered on it afterwards.
func (s *EventsService) StartSubscriber(rabbitmqURL string, log logger.Logger, config *SubscriberConfig) error {
	subscriber, err := NewRabbitMQSubscriber(rabbitmqURL, log, config)
	if err != nil {
		return err
	}
	s.Subscriber = subscriber
	return nil
}

func (s *EventsService) Close() error {
	var err error

	if s.Subscriber != nil {
		err = multierr.Append(err, s.Subscriber.Close())
	}
	if s.Publisher != nil {
		err = multierr.Append(err, s.Publisher.Close())
	}

	return err
}
