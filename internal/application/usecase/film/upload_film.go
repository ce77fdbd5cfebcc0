package film

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/adapters/event"
	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/internal/domain/user"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

var tracer = otel.Tracer("film_usecase")

type UploadFilmUseCase struct {
	filmRepo  film.Repository
	store     service.ContentStore
	uploader  service.Uploader
	publisher service.EventPublisher
	currency  string
	logger    logger.Logger
}

func NewUploadFilmUseCase(fRepo film.Repository, store service.ContentStore, uploader service.Uploader, publisher service.EventPublisher, currency string, log logger.Logger) *UploadFilmUseCase {
	return &UploadFilmUseCase{
		filmRepo:  fRepo,
		store:     store,
		uploader:  uploader,
		publisher: publisher,
		currency:  currency,
		logger:    log,
	}
}

type UploadFilmInput struct {
	OwnerID     uuid.UUID
	Role        user.Role
	Title       string
	Description string
	FilmType    string
	// PriceCents is required; zero marks the film as free.
	PriceCents  *int64
	File        io.Reader
	ContentType string
	Thumbnail   io.Reader
}

func (uc *UploadFilmUseCase) Execute(ctx context.Context, input UploadFilmInput) (*film.Film, error) {
	ctx, span := tracer.Start(ctx, "UploadFilm")
	defer span.End()

	if input.Role != user.RoleFilmmaker {
		err := apperror.NewPermissionDenied("only filmmakers can upload films")
		span.RecordError(err)
		return nil, err
	}
	if input.PriceCents == nil {
		return nil, apperror.NewInvalidInput("price_cents is required", nil)
	}
	if input.File == nil {
		return nil, apperror.NewInvalidInput("film file is required", nil)
	}

	now := time.Now().UTC()
	newFilm := &film.Film{
		ID:          uuid.New(),
		OwnerID:     input.OwnerID,
		Title:       input.Title,
		Description: input.Description,
		FilmType:    input.FilmType,
		PriceCents:  *input.PriceCents,
		Currency:    uc.currency,
		Visibility:  film.VisibilityDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := newFilm.Validate(); err != nil {
		return nil, apperror.NewInvalidInput("validation failed", err)
	}
	newFilm.ContentKey = fmt.Sprintf("films/%s/%s", input.OwnerID, newFilm.ID)
	span.SetAttributes(attribute.String("film_id", newFilm.ID.String()))

	l := uc.logger.With(zap.String("film_id", newFilm.ID.String()), zap.String("owner_id", input.OwnerID.String()))

	if err := uc.store.Put(ctx, newFilm.ContentKey, input.File, input.ContentType); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if input.Thumbnail != nil {
		folder := fmt.Sprintf("films/%s/thumbnails", input.OwnerID)
		publicID, err := uc.uploader.Upload(ctx, input.Thumbnail, folder, newFilm.ID.String())
		if err != nil {
			l.Warn("Thumbnail upload failed, film saved without thumbnail", zap.Error(err))
		} else {
			newFilm.ThumbnailPublicID = &publicID
		}
	}

	if err := uc.filmRepo.Save(ctx, newFilm); err != nil {
		if newFilm.ThumbnailPublicID != nil {
			publicID := *newFilm.ThumbnailPublicID
			go func() {
				if err := uc.uploader.Delete(context.Background(), publicID); err != nil {
					l.Error("Failed to delete orphaned thumbnail", err, zap.String("public_id", publicID))
				}
			}()
		}
		span.RecordError(err)
		return nil, err
	}

	payload := event.FilmEventPayload{
		EventType: event.FilmEventTypeUploaded,
		FilmID:    newFilm.ID,
		OwnerID:   newFilm.OwnerID,
	}
	if newFilm.ThumbnailPublicID != nil {
		payload.ThumbnailPublicID = *newFilm.ThumbnailPublicID
	}
	go func() {
		if err := uc.publisher.PublishFilmEvent(context.Background(), payload); err != nil {
			l.Error("Failed to publish Kafka 'uploaded' event", err)
		}
	}()

	l.Info("Film uploaded")
	return newFilm, nil
}
