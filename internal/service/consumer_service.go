// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"
	"log"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/websocket"
	"ai-research-be/pkg/events"
	pkgNats "ai-research-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the progress topic and fans each update out to the
// websocket hub and, when configured, the NATS event stream. Keeping the
// fan-out off the research goroutine means a slow subscriber never stalls a
// run.
type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	wsHub          *websocket.Hub
	eventPublisher *pkgNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	wsHub *websocket.Hub,
	eventPublisher *pkgNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		wsHub:          wsHub,
		eventPublisher: eventPublisher,
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
	var payload dto.ResearchProgressMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal progress message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	// Websocket clients get the raw payload; they watch a single session.
	if cs.wsHub != nil {
		cs.wsHub.Send(payload.SessionId, msg.Payload)
	}

	// Mirror lifecycle events to NATS for external consumers.
	if cs.eventPublisher != nil {
		if evt, ok := lifecycleEvent(payload); ok {
			if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
				log.Printf("[WARN] Failed to publish %s to NATS: %v", payload.EventType, err)
			}
		}
	}

	msg.Ack()
}

// lifecycleEvent maps a progress payload onto the typed event that external
// consumers subscribe to. Unknown types are dropped rather than guessed at.
func lifecycleEvent(payload dto.ResearchProgressMessage) (events.Event, bool) {
	switch payload.EventType {
	case events.TypeResearchStarted:
		return events.NewResearchStarted(payload.SessionId, payload.Mode, payload.Query), true
	case events.TypeResearchStageChanged:
		return events.NewResearchStageChanged(payload.SessionId, payload.Stage, payload.Detail), true
	case events.TypeResearchClarification:
		return events.NewResearchClarification(payload.SessionId, payload.Detail), true
	case events.TypeResearchCompleted:
		return events.NewResearchCompleted(payload.SessionId, payload.CostUSD, payload.DurationSeconds), true
	case events.TypeResearchFailed:
		return events.NewResearchFailed(payload.SessionId, payload.Error), true
	}
	return nil, false
}
