package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/prodigy2/autoRiaClone/pkg/kafka"
)

// Kafka topic constants for marketplace domain events.
const (
	TopicAdCreated      = "autoria.ad.created"
	TopicAdRejected     = "autoria.ad.rejected"
	TopicUserRegistered = "autoria.user.registered"
)

// Aggregate type constants.
const (
	AggregateTypeAd   = "ad"
	AggregateTypeUser = "user"
)

// Source identifier for events originating from this backend.
const SourceBackend = "autoria-backend"

// AdCreatedData is the payload for an ad.created event.
type AdCreatedData struct {
	AdID     string `json:"ad_id"`
	SellerID string `json:"seller_id"`
	Title    string `json:"title"`
	ModelID  string `json:"model_id"`
	Currency string `json:"currency"`
	Price    int64  `json:"price"`
}

// AdRejectedData is the payload for an ad.rejected event. A manager is
// expected to review the ad once Terminal is set.
type AdRejectedData struct {
	AdID           string `json:"ad_id"`
	SellerID       string `json:"seller_id"`
	Reason         string `json:"reason"`
	RejectionCount int    `json:"rejection_count"`
	Status         string `json:"status"`
	Terminal       bool   `json:"terminal"`
}

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	AccountTier string `json:"account_tier"`
}

// Producer publishes marketplace domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishAdCreated publishes an ad.created event.
func (p *Producer) PublishAdCreated(ctx context.Context, data AdCreatedData) error {
	event, err := pkgkafka.NewEvent(TopicAdCreated, data.AdID, AggregateTypeAd, SourceBackend, data)
	if err != nil {
		return fmt.Errorf("create ad.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicAdCreated, event); err != nil {
		return fmt.Errorf("publish ad.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published ad.created event",
		slog.String("ad_id", data.AdID),
		slog.String("seller_id", data.SellerID),
	)

	return nil
}

// PublishAdRejected publishes an ad.rejected event.
func (p *Producer) PublishAdRejected(ctx context.Context, data AdRejectedData) error {
	event, err := pkgkafka.NewEvent(TopicAdRejected, data.AdID, AggregateTypeAd, SourceBackend, data)
	if err != nil {
		return fmt.Errorf("create ad.rejected event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicAdRejected, event); err != nil {
		return fmt.Errorf("publish ad.rejected event: %w", err)
	}

	p.logger.DebugContext(ctx, "published ad.rejected event",
		slog.String("ad_id", data.AdID),
		slog.String("seller_id", data.SellerID),
		slog.Int("rejection_count", data.RejectionCount),
		slog.Bool("terminal", data.Terminal),
	)

	return nil
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, data UserRegisteredData) error {
	event, err := pkgkafka.NewEvent(TopicUserRegistered, data.UserID, AggregateTypeUser, SourceBackend, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", data.UserID),
	)

	return nil
}
