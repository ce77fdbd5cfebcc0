package film

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/adapters/event"
	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

type PublishFilmUseCase struct {
	filmRepo  film.Repository
	publisher service.EventPublisher
	logger    logger.Logger
}

func NewPublishFilmUseCase(fRepo film.Repository, publisher service.EventPublisher, log logger.Logger) *PublishFilmUseCase {
	return &PublishFilmUseCase{filmRepo: fRepo, publisher: publisher, logger: log}
}

func (uc *PublishFilmUseCase) Execute(ctx context.Context, ownerID, filmID uuid.UUID) (*film.Film, error) {
	ctx, span := tracer.Start(ctx, "PublishFilm")
	defer span.End()

	f, err := uc.filmRepo.FindByID(ctx, filmID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !f.IsOwnedBy(ownerID) {
		return nil, apperror.NewPermissionDenied("only the owner can publish this film")
	}

	if err := f.Publish(time.Now().UTC()); err != nil {
		if errors.Is(err, film.ErrAlreadyPublished) {
			return f, nil
		}
		return nil, apperror.NewInvalidInput("cannot publish film", err)
	}

	if err := uc.filmRepo.Update(ctx, f); err != nil {
		span.RecordError(err)
		return nil, err
	}

	go func() {
		err := uc.publisher.PublishFilmEvent(context.Background(), event.FilmEventPayload{
			EventType: event.FilmEventTypePublished,
			FilmID:    f.ID,
			OwnerID:   f.OwnerID,
		})
		if err != nil {
			uc.logger.Error("Failed to publish Kafka 'published' event", err, zap.String("film_id", f.ID.String()))
		}
	}()

	return f, nil
}
