package service

import (
	"context"
	"encoding/json"
	"time"

	"nana-be/internal/pkg/logger"
	"nana-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventForwarder ships usage events off-process. *nats.Publisher satisfies it.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	usageLogger logger.ILogger
	sysLogger   logger.ILogger
	forwarder   EventForwarder
}

// NewConsumerService drains the usage topic into usageLogger and, when
// forwarder is non-nil, onto NATS.
func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	usageLogger logger.ILogger,
	sysLogger logger.ILogger,
	forwarder EventForwarder,
) IConsumerService {
	return &consumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		usageLogger: usageLogger,
		sysLogger:   sysLogger,
		forwarder:   forwarder,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Usage events are fire-and-forget; always ack so nothing is redelivered.
	defer msg.Ack()

	var env events.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		cs.sysLogger.Warn("USAGE", "Dropping malformed usage event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	details := make(map[string]interface{}, len(env.Data)+2)
	for k, v := range env.Data {
		details[k] = v
	}
	details["event_id"] = msg.UUID
	details["occurred_at"] = env.OccurredAt.Format(time.RFC3339Nano)
	cs.usageLogger.Info("USAGE", env.Type, details)

	if cs.forwarder == nil {
		return
	}
	fwdCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := cs.forwarder.Publish(fwdCtx, env.Event()); err != nil {
		cs.sysLogger.Warn("USAGE", "Failed to forward usage event to NATS", map[string]interface{}{
			"type":  env.Type,
			"error": err.Error(),
		})
	}
}
