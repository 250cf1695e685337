package bus

import (
	"time"

	"github.com/safarnama/safarnama/internal/core/observability/log"
)

// LogObserver writes a debug line per delivery and a warning when handlers fail.
type LogObserver struct {
	logger log.Log
}

func NewLogObserver(logger log.Log) *LogObserver {
	return &LogObserver{logger: logger.With(log.String("component", "bus"))}
}

func (o *LogObserver) OnPublish(topic, eventType string, event Event) {
	o.logger.Debug("Event published",
		log.String("topic", topic),
		log.String("type", eventType),
		log.String("source", event.Source()))
}

func (o *LogObserver) OnDelivered(topic, eventType string, handlers int, err error, duration time.Duration) {
	if err != nil {
		o.logger.Warn("Event handlers failed",
			log.String("topic", topic),
			log.String("type", eventType),
			log.Int("handlers", handlers),
			log.Error(err))
		return
	}
	o.logger.Debug("Event delivered",
		log.String("type", eventType),
		log.Int("handlers", handlers),
		log.Duration("duration", duration))
}
