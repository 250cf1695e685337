package bus

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// simpleEvent is a basic implementation of Event.
type simpleEvent struct {
	typeStr string
	source  string
	ts      time.Time
	data    any
	meta    map[string]any
}

func (e simpleEvent) Type() string             { return e.typeStr }
func (e simpleEvent) Source() string           { return e.source }
func (e simpleEvent) Timestamp() time.Time     { return e.ts }
func (e simpleEvent) Data() any                { return e.data }
func (e simpleEvent) Metadata() map[string]any { return e.meta }

// NewEvent creates a simple Event implementation.
func NewEvent(typ, src string, data any, metadata map[string]any) Event {
	return simpleEvent{typeStr: typ, source: src, ts: time.Now(), data: data, meta: metadata}
}

type subscription struct {
	id        string
	seq       uint64
	topic     string
	eventType string
	handler   EventHandler

	mu     sync.Mutex
	active bool
	cancel func()
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) EventType() string { return s.eventType }
func (s *subscription) Topic() string     { return s.topic }

func (s *subscription) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *subscription) Cancel() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	s.mu.Unlock()
	s.cancel()
	return nil
}

type inMemoryBus struct {
	mu sync.RWMutex
	// handlers: topic -> eventType -> subID -> subscription
	handlers  map[string]map[string]map[string]*subscription
	topics    map[string]TopicConfig
	metrics   EventBusMetrics
	observers map[EventBusObserver]struct{}
	seq       uint64
}

// New creates a new EventBus instance.
func New() EventBus {
	return &inMemoryBus{
		handlers:  make(map[string]map[string]map[string]*subscription),
		topics:    make(map[string]TopicConfig),
		observers: make(map[EventBusObserver]struct{}),
	}
}

func (b *inMemoryBus) Publish(event Event) error {
	return b.deliver("", event)
}

func (b *inMemoryBus) PublishToTopic(topic string, event Event) error {
	return b.deliver(topic, event)
}

func (b *inMemoryBus) Subscribe(eventType string, handler EventHandler) (Subscription, error) {
	return b.SubscribeTopic("", eventType, handler)
}

func (b *inMemoryBus) SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if eventType == "" {
		return nil, ErrEmptyEventType
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureTopicLocked(topic, TopicConfig{})
	if b.handlers[topic][eventType] == nil {
		b.handlers[topic][eventType] = make(map[string]*subscription)
	}
	b.seq++
	s := &subscription{
		id:        uuid.NewString(),
		seq:       b.seq,
		topic:     topic,
		eventType: eventType,
		handler:   handler,
		active:    true,
	}
	s.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if mm, ok := b.handlers[topic][eventType]; ok {
			delete(mm, s.id)
		}
	}
	b.handlers[topic][eventType][s.id] = s
	return s, nil
}

func (b *inMemoryBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (b *inMemoryBus) CreateTopic(name string, config TopicConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureTopicLocked(name, config)
	return nil
}

func (b *inMemoryBus) AddObserver(obs EventBusObserver) {
	b.mu.Lock()
	b.observers[obs] = struct{}{}
	b.mu.Unlock()
}

func (b *inMemoryBus) RemoveObserver(obs EventBusObserver) {
	b.mu.Lock()
	delete(b.observers, obs)
	b.mu.Unlock()
}

func (b *inMemoryBus) GetMetrics() EventBusMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

func (b *inMemoryBus) GetTopics() []TopicInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]TopicInfo, 0, len(b.topics))
	for name, cfg := range b.topics {
		info := TopicInfo{Name: name, Description: cfg.Description}
		if hm := b.handlers[name]; hm != nil {
			info.EventTypes = len(hm)
			for _, m := range hm {
				info.Subs += len(m)
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (b *inMemoryBus) ensureTopicLocked(topic string, config TopicConfig) {
	if existing, ok := b.topics[topic]; !ok || (existing.Description == "" && config.Description != "") {
		b.topics[topic] = config
	}
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[string]map[string]*subscription)
	}
}

func (b *inMemoryBus) deliver(topic string, event Event) error {
	start := time.Now()
	etype := event.Type()

	b.mu.RLock()
	var subs []*subscription
	if m := b.handlers[topic][etype]; m != nil {
		subs = make([]*subscription, 0, len(m))
		for _, s := range m {
			subs = append(subs, s)
		}
	}
	observers := make([]EventBusObserver, 0, len(b.observers))
	for obs := range b.observers {
		observers = append(observers, obs)
	}
	b.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })

	for _, obs := range observers {
		obs.OnPublish(topic, etype, event)
	}

	var all error
	delivered := 0
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		delivered++
		if err := s.handler(event); err != nil {
			all = errors.Join(all, err)
		}
	}

	elapsed := time.Since(start)
	for _, obs := range observers {
		obs.OnDelivered(topic, etype, delivered, all, elapsed)
	}

	b.mu.Lock()
	b.metrics.Published++
	b.metrics.DeliveredHandlers += uint64(delivered)
	if all != nil {
		b.metrics.Errors++
	}
	b.metrics.Topics = uint64(len(b.topics))
	var active uint64
	for _, et := range b.handlers {
		for _, m := range et {
			active += uint64(len(m))
		}
	}
	b.metrics.SubscribersActive = active
	b.mu.Unlock()

	return all
}
