package interfaces

import (
	"context"
)

type EventPublisher interface {
	PublishDirectEvent(ctx context.Context, entityId string, message interface{}, routingKey string) error
	Close() error
}

type EventListener interface {
	Handle(ctx context.Context, event any) error
	GetEventType() string
	GetQueueName() string
}

type EventSubscriber interface {
	RegisterListener(listener EventListener)
	ListenQueue(queueName string) error
	Close() error
}
