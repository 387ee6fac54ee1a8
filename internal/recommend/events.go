// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/papertrail/internal/logging"
)

// TopicModelActivated carries a ModelActivated payload after a trained model
// has been saved and marked active in the registry.
const TopicModelActivated = "model.activated"

// ModelActivated announces a newly active model version.
type ModelActivated struct {
	Version     string    `json:"version"`
	ActivatedAt time.Time `json:"activated_at"`
}

// EventBus is an in-process publish/subscribe channel for model lifecycle
// events.
type EventBus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger
}

// NewEventBus creates a bus whose subscribers buffer up to buffer messages.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEventBus(buffer int64, logger zerolog.Logger) *EventBus {
	return &EventBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: buffer,
		}, logging.NewWatermillLogger(logger)),
		logger: logger.With().Str("component", "event_bus").Logger(),
	}
}

// PublishModelActivated publishes ev on TopicModelActivated.
func (b *EventBus) PublishModelActivated(ctx context.Context, ev ModelActivated) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", TopicModelActivated, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(TopicModelActivated, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicModelActivated, err)
	}
	b.logger.Debug().Str("version", ev.Version).Str("message_uuid", msg.UUID).Msg("model activation published")
	return nil
}

// OnModelActivated subscribes handler to TopicModelActivated. Messages are
// handled one at a time until ctx is cancelled or the bus is closed. The
// handler receives ctx, not the publisher's context, which may already be
// done. Handler errors are logged and the message is acknowledged; there is
// no redelivery.
func (b *EventBus) OnModelActivated(ctx context.Context, handler func(context.Context, ModelActivated) error) error {
	messages, err := b.pubsub.Subscribe(ctx, TopicModelActivated)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicModelActivated, err)
	}

	go func() {
		for msg := range messages {
			var ev ModelActivated
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("dropping undecodable event")
				msg.Ack()
				continue
			}
			if err := handler(ctx, ev); err != nil {
				b.logger.Error().Err(err).Str("version", ev.Version).Msg("model activation handler failed")
			}
			msg.Ack()
		}
	}()
	return nil
}

// Close stops delivery to all subscribers.
func (b *EventBus) Close() error {
	return b.pubsub.Close()
}
