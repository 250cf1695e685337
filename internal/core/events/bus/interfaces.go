package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus connecting the ball field
// sessions, the session cache and whoever reacts to them (navigation,
// logging).
//
// Handlers subscribe by Event.Type() within a topic; the default topic is "".
// Publish delivers synchronously in the caller goroutine, in subscription
// order, and joins handler errors.
type EventBus interface {
	Publish(event Event) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Nil is a no-op.
	Unsubscribe(Subscription) error

	// CreateTopic declares a topic. Repeat declarations are idempotent.
	CreateTopic(name string, config TopicConfig) error
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	PublishToTopic(topic string, event Event) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	GetMetrics() EventBusMetrics
	GetTopics() []TopicInfo
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
	Metadata() map[string]any
}

// EventHandler is invoked per delivered event; errors are joined and
// returned from Publish.
type EventHandler func(event Event) error

// Subscription represents a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	Topic() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// TopicConfig describes topic-level settings.
type TopicConfig struct {
	Description string
}

// EventBusObserver is notified about deliveries and errors. Observers should
// return quickly.
type EventBusObserver interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error, duration time.Duration)
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
	Topics            uint64
}

type TopicInfo struct {
	Name        string
	Description string
	EventTypes  int
	Subs        int
}
