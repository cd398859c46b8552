package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/auroramedia/gramflow/infra"
	"github.com/auroramedia/gramflow/infra/produce"
	"github.com/auroramedia/gramflow/scheduler"
)

// TriggerConsumer turns messages on the scheduler trigger queue into
// immediate ticks. External cron publishers use this where the daemon's
// timer interval is too coarse.
type TriggerConsumer struct {
	channel   *amqp.Channel
	infra     *infra.Infra
	scheduler *scheduler.Scheduler
}

func NewTriggerConsumer(channel *amqp.Channel, infra *infra.Infra, sched *scheduler.Scheduler) *TriggerConsumer {
	return &TriggerConsumer{
		channel:   channel,
		infra:     infra,
		scheduler: sched,
	}
}

func (c *TriggerConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		produce.TriggerQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register trigger consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Trigger Consumer] Started listening on queue: %s", produce.TriggerQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.infra.Logger.InfoWithContextf(ctx, "[Trigger Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.infra.Logger.WarningWithContextf(ctx, "[Trigger Consumer] Channel closed")
					return
				}
				c.handleTrigger(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *TriggerConsumer) handleTrigger(ctx context.Context, msg amqp.Delivery) {
	var payload produce.TriggerMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Trigger Consumer] Failed to unmarshal message")
		_ = msg.Nack(false, false)
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Trigger Consumer] Tick requested by %q", payload.Source)

	processed, err := c.scheduler.RunTick(ctx)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Trigger Consumer] Tick failed")
		// The periodic loop rescans everything; requeueing the trigger
		// would only pile up duplicate ticks.
		_ = msg.Nack(false, false)
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Trigger Consumer] Tick done, %d jobs processed", processed)
	_ = msg.Ack(false)
}
