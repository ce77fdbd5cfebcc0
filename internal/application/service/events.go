package service

import (
	"context"

	"github.com/khoahotran/filmila/adapters/event"
)

type EventPublisher interface {
	PublishFilmEvent(ctx context.Context, payload event.FilmEventPayload) error
	PublishPurchaseEvent(ctx context.Context, payload event.PurchaseEventPayload) error
}
