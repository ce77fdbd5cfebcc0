package film

import (
	"context"

	"github.com/google/uuid"

	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/pkg/apperror"
)

type ListFilmsInput struct {
	Page  int
	Limit int
}

type ListFilmsOutput struct {
	Films []*film.Film `json:"films"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (in *ListFilmsInput) normalize() int {
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	if in.Page <= 0 {
		in.Page = 1
	}
	return (in.Page - 1) * in.Limit
}

type ListPublishedFilmsUseCase struct {
	filmRepo film.Repository
}

func NewListPublishedFilmsUseCase(fRepo film.Repository) *ListPublishedFilmsUseCase {
	return &ListPublishedFilmsUseCase{filmRepo: fRepo}
}

func (uc *ListPublishedFilmsUseCase) Execute(ctx context.Context, input ListFilmsInput) (*ListFilmsOutput, error) {
	offset := input.normalize()
	films, err := uc.filmRepo.ListPublished(ctx, input.Limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListFilmsOutput{Films: films, Page: input.Page, Limit: input.Limit}, nil
}

type ListOwnFilmsUseCase struct {
	filmRepo film.Repository
}

func NewListOwnFilmsUseCase(fRepo film.Repository) *ListOwnFilmsUseCase {
	return &ListOwnFilmsUseCase{filmRepo: fRepo}
}

func (uc *ListOwnFilmsUseCase) Execute(ctx context.Context, ownerID uuid.UUID, input ListFilmsInput) (*ListFilmsOutput, error) {
	offset := input.normalize()
	films, err := uc.filmRepo.ListByOwner(ctx, ownerID, input.Limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListFilmsOutput{Films: films, Page: input.Page, Limit: input.Limit}, nil
}

type GetFilmUseCase struct {
	filmRepo film.Repository
}

func NewGetFilmUseCase(fRepo film.Repository) *GetFilmUseCase {
	return &GetFilmUseCase{filmRepo: fRepo}
}

// Execute hides drafts from everyone but their owner. viewerID is uuid.Nil
// for anonymous callers.
func (uc *GetFilmUseCase) Execute(ctx context.Context, viewerID, filmID uuid.UUID) (*film.Film, error) {
	f, err := uc.filmRepo.FindByID(ctx, filmID)
	if err != nil {
		return nil, err
	}
	if !f.IsPublished() && !f.IsOwnedBy(viewerID) {
		return nil, apperror.NewNotFound("film", filmID.String())
	}
	return f, nil
}
