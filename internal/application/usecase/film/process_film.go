package film

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/khoahotran/filmila/adapters/event"
	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

const thumbnailTransformation = "c_fill,g_auto,w_640,h_360"

// ProcessFilmUseCase runs in the worker and derives the catalogue thumbnail
// from the uploaded original.
type ProcessFilmUseCase struct {
	filmRepo film.Repository
	uploader service.Uploader
	logger   logger.Logger
}

func NewProcessFilmUseCase(fRepo film.Repository, uploader service.Uploader, log logger.Logger) *ProcessFilmUseCase {
	return &ProcessFilmUseCase{filmRepo: fRepo, uploader: uploader, logger: log}
}

func (uc *ProcessFilmUseCase) Execute(ctx context.Context, payload event.FilmEventPayload) error {
	l := uc.logger.With(zap.String("film_id", payload.FilmID.String()), zap.String("event_type", string(payload.EventType)))

	if payload.EventType != event.FilmEventTypeUploaded {
		return nil
	}
	l.Info("Worker UseCase processing film event")

	f, err := uc.filmRepo.FindByID(ctx, payload.FilmID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			l.Warn("Film not found, skipping event")
			return nil
		}
		return apperror.NewInternal("failed to get film", err)
	}

	if f.ThumbnailURL != nil {
		l.Info("Film thumbnail already processed, skipping")
		return nil
	}

	publicID := payload.ThumbnailPublicID
	if publicID == "" && f.ThumbnailPublicID != nil {
		publicID = *f.ThumbnailPublicID
	}
	if publicID == "" {
		l.Info("Film has no thumbnail, skipping")
		return nil
	}

	thumbURL, err := uc.uploader.TransformURL(publicID, thumbnailTransformation)
	if err != nil {
		return apperror.NewInternal("failed to build thumbnail URL", err)
	}

	f.ThumbnailPublicID = &publicID
	f.ThumbnailURL = &thumbURL
	if err := uc.filmRepo.Update(ctx, f); err != nil {
		return apperror.NewInternal("failed to store thumbnail URL", err)
	}

	l.Info("Successfully processed film thumbnail")
	return nil
}
