package entitlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

type StreamContentUseCase struct {
	access *CheckAccessUseCase
	store  service.ContentStore
	logger logger.Logger
}

func NewStreamContentUseCase(access *CheckAccessUseCase, store service.ContentStore, log logger.Logger) *StreamContentUseCase {
	return &StreamContentUseCase{access: access, store: store, logger: log}
}

func (uc *StreamContentUseCase) Execute(ctx context.Context, viewerID, filmID uuid.UUID) (*service.ContentLocator, error) {
	ctx, span := tracer.Start(ctx, "StreamContent")
	defer span.End()

	f, decision, err := uc.access.evaluate(ctx, viewerID, filmID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !decision.Granted {
		err := apperror.NewAccessDenied(filmID.String())
		span.RecordError(err)
		return nil, err
	}

	locator, err := uc.store.Locate(ctx, f.ContentKey)
	if err != nil {
		span.RecordError(err)
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		uc.logger.Error("Content store failed to locate film", err, zap.String("film_id", filmID.String()))
		return nil, apperror.NewUpstreamUnavailable("content store", err)
	}
	return locator, nil
}
