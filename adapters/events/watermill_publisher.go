package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/halcyon-id/siws/ports"
)

const (
	LoginTopic  = "siws.login"
	LogoutTopic = "siws.logout"
)

// AuthEvent notifies other instances about a login or logout.
type AuthEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, address string, tokenID string) error {
	return p.publish(LoginTopic, address, tokenID)
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(LogoutTopic, address, tokenID)
}

func (p *WatermillPublisher) publish(topic, address, tokenID string) error {
	payload, err := json.Marshal(AuthEvent{Address: address, TokenID: tokenID})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(tokenID, payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher discards events. Used when no message broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishLogin(ctx context.Context, address, tokenID string) error  { return nil }
func (NopPublisher) PublishLogout(ctx context.Context, address, tokenID string) error { return nil }
