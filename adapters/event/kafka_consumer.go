package event

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/internal/config"
	"github.com/khoahotran/filmila/pkg/logger"
)

// FilmEventHandler processes one decoded film event.
type FilmEventHandler func(ctx context.Context, payload FilmEventPayload) error

// messageReader is the subset of *kafka.Reader the consumer loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type FilmEventConsumer struct {
	reader  messageReader
	handler FilmEventHandler
	logger  logger.Logger
}

func NewFilmEventReader(cfg config.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    TopicFilmEvents,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
}

func NewFilmEventConsumer(reader messageReader, handler FilmEventHandler, log logger.Logger) *FilmEventConsumer {
	return &FilmEventConsumer{reader: reader, handler: handler, logger: log}
}

// Run reads until ctx is cancelled. Undecodable messages are committed and
// skipped; messages whose handler fails are left uncommitted.
func (c *FilmEventConsumer) Run(ctx context.Context) error {
	c.logger.Info("Worker listening on topic", zap.String("topic", TopicFilmEvents))
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to read message from Kafka", err)
			continue
		}

		l := c.logger.With(zap.String("topic", msg.Topic), zap.String("key", string(msg.Key)))

		var payload FilmEventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			l.Error("Failed to unmarshal event, skipping", err)
			c.commit(ctx, msg)
			continue
		}

		if err := c.handler(ctx, payload); err != nil {
			l.Error("Failed to process film event", err, zap.String("film_id", payload.FilmID.String()))
			continue
		}

		c.commit(ctx, msg)
	}
}

func (c *FilmEventConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message", err)
	}
}
