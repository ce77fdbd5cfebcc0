package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/khoahotran/filmila/internal/config"
	"github.com/khoahotran/filmila/pkg/logger"
)

const (
	TopicFilmEvents     = "film.events"
	TopicPurchaseEvents = "purchase.events"
)

type FilmEventType string

const (
	FilmEventTypeUploaded  FilmEventType = "film.uploaded"
	FilmEventTypePublished FilmEventType = "film.published"
)

type FilmEventPayload struct {
	EventType         FilmEventType `json:"event_type"`
	FilmID            uuid.UUID     `json:"film_id"`
	OwnerID           uuid.UUID     `json:"owner_id"`
	ThumbnailPublicID string        `json:"thumbnail_public_id,omitempty"`
}

type PurchaseEventType string

const (
	PurchaseEventTypePending PurchaseEventType = "purchase.pending"
	PurchaseEventTypeSettled PurchaseEventType = "purchase.settled"
	PurchaseEventTypeFailed  PurchaseEventType = "purchase.failed"
)

type PurchaseEventPayload struct {
	EventType   PurchaseEventType `json:"event_type"`
	PurchaseID  uuid.UUID         `json:"purchase_id"`
	ViewerID    uuid.UUID         `json:"viewer_id"`
	FilmID      uuid.UUID         `json:"film_id"`
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
}

type KafkaProducerClient struct {
	FilmEventsWriter     *kafka.Writer
	PurchaseEventsWriter *kafka.Writer
	logger               logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	// writer 'film.events'
	filmWriter := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    TopicFilmEvents,
		Balancer: &kafka.LeastBytes{},
	}

	// writer 'purchase.events', keyed by purchase so one purchase stays on one partition
	purchaseWriter := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    TopicPurchaseEvents,
		Balancer: &kafka.Hash{},
	}

	log.Info("Initialize Kafka Producers successfully.")

	return &KafkaProducerClient{
		FilmEventsWriter:     filmWriter,
		PurchaseEventsWriter: purchaseWriter,
		logger:               log,
	}, nil
}

func (c *KafkaProducerClient) PublishFilmEvent(ctx context.Context, payload FilmEventPayload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal film event: %w", err)
	}
	return c.FilmEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload.FilmID.String()),
		Value: value,
	})
}

func (c *KafkaProducerClient) PublishPurchaseEvent(ctx context.Context, payload PurchaseEventPayload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal purchase event: %w", err)
	}
	return c.PurchaseEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload.PurchaseID.String()),
		Value: value,
	})
}

func (c *KafkaProducerClient) Close() {
	if c.FilmEventsWriter != nil {
		c.FilmEventsWriter.Close()
	}
	if c.PurchaseEventsWriter != nil {
		c.PurchaseEventsWriter.Close()
	}
	c.logger.Info("Closed Kafka Producers")
}
