package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	PostsExchange = "posts.exchange"

	// TriggerQueue wakes the scheduler daemon for one immediate tick, e.g.
	// from an external cron publisher.
	TriggerQueue      = "scheduler.trigger"
	TriggerRoutingKey = "scheduler.trigger"

	// EventsQueue carries post lifecycle events for downstream consumers
	// (notification service, dashboards).
	EventsQueue      = "posts.events"
	EventsRoutingKey = "posts.events"
)

// TriggerMessage asks the scheduler daemon for one due-scan.
type TriggerMessage struct {
	Source    string `json:"source"` // e.g. "http", "cron"
	Timestamp int64  `json:"timestamp"`
}

// PostEventMessage reports one job reaching a new externally visible state.
type PostEventMessage struct {
	JobID           string `json:"job_id"`
	Account         string `json:"account"`
	Status          string `json:"status"` // scheduled, done, failed
	ExternalMediaID string `json:"external_media_id,omitempty"`
	Error           string `json:"error,omitempty"`
	Timestamp       int64  `json:"timestamp"`
}

// SchedulerService publishes scheduler triggers and post lifecycle events.
type SchedulerService struct {
	channel *amqp.Channel
}

func InitSchedulerService(channel *amqp.Channel) *SchedulerService {
	service := &SchedulerService{
		channel: channel,
	}

	err := channel.ExchangeDeclare(
		PostsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Posts exchange: " + err.Error())
	}

	for queue, key := range map[string]string{
		TriggerQueue: TriggerRoutingKey,
		EventsQueue:  EventsRoutingKey,
	} {
		_, err = channel.QueueDeclare(
			queue,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			panic("Failed to declare queue " + queue + ": " + err.Error())
		}

		err = channel.QueueBind(
			queue,
			key,
			PostsExchange,
			false,
			nil,
		)
		if err != nil {
			panic("Failed to bind queue " + queue + ": " + err.Error())
		}
	}

	return service
}

// PublishTrigger asks the scheduler daemon to run one tick now.
func (s *SchedulerService) PublishTrigger(ctx context.Context, source string) error {
	msg := TriggerMessage{
		Source:    source,
		Timestamp: time.Now().Unix(),
	}
	return s.publish(ctx, TriggerRoutingKey, msg)
}

// PublishPostEvent emits one lifecycle event for downstream consumers.
func (s *SchedulerService) PublishPostEvent(ctx context.Context, msg PostEventMessage) error {
	msg.Timestamp = time.Now().Unix()
	return s.publish(ctx, EventsRoutingKey, msg)
}

func (s *SchedulerService) publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		PostsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
