package film

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/pkg/logger"
)

const feedSize = 20

// ReleasesFeedUseCase builds the "new releases" feed of published films.
type ReleasesFeedUseCase struct {
	filmRepo film.Repository
	baseURL  string
	logger   logger.Logger
}

func NewReleasesFeedUseCase(fRepo film.Repository, baseURL string, log logger.Logger) *ReleasesFeedUseCase {
	return &ReleasesFeedUseCase{
		filmRepo: fRepo,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   log,
	}
}

func (uc *ReleasesFeedUseCase) Execute(ctx context.Context) (*feeds.Feed, error) {
	films, err := uc.filmRepo.ListPublished(ctx, feedSize, 0)
	if err != nil {
		uc.logger.Error("Failed to list published films for feed", err)
		return nil, err
	}

	feed := &feeds.Feed{
		Title:       "Filmila - New releases",
		Link:        &feeds.Link{Href: uc.baseURL + "/api/films"},
		Description: "Films recently published on Filmila.",
		Created:     time.Now().UTC(),
	}

	for _, f := range films {
		item := &feeds.Item{
			Id:          f.ID.String(),
			Title:       f.Title,
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/api/films/%s", uc.baseURL, f.ID)},
			Description: f.Description,
			Created:     f.CreatedAt,
		}
		if f.PublishedAt != nil {
			item.Created = *f.PublishedAt
		}
		if f.ThumbnailURL != nil {
			item.Enclosure = &feeds.Enclosure{Url: *f.ThumbnailURL, Type: "image/jpeg", Length: "0"}
		}
		feed.Items = append(feed.Items, item)
	}

	uc.logger.Debug("Releases feed generated", zap.Int("item_count", len(feed.Items)))
	return feed, nil
}
