package worker

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/example/homecare/backend/internal/mq"
)

// EventLogger consumes booking lifecycle events from the queue and writes
// them to the operational log. It stands in for downstream notification
// services during development and doubles as a liveness check on the exchange.
type EventLogger struct {
	id       string
	consumer mq.Consumer
}

// NewEventLogger creates the logger with a random identifier.
func NewEventLogger(consumer mq.Consumer) *EventLogger {
	return &EventLogger{
		id:       uuid.New().String(),
		consumer: consumer,
	}
}

// Run starts consuming and blocks until ctx is cancelled. It should be
// launched in its own goroutine.
func (w *EventLogger) Run(ctx context.Context) error {
	err := w.consumer.Consume(func(msg amqp091.Delivery) {
		var payload map[string]any
		if err := json.Unmarshal(msg.Body, &payload); err != nil {
			log.Printf("event logger %s: drop malformed event: %v", w.id, err)
			msg.Nack(false, false)
			return
		}
		log.Printf("event logger %s: %s booking=%v staff=%v",
			w.id, msg.RoutingKey, payload["bookingId"], payload["staffId"])
		msg.Ack(false)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("event logger shutting down")
	return nil
}
