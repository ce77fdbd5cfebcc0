package http

import (
	"github.com/gin-gonic/gin"

	filmUC "github.com/khoahotran/filmila/internal/application/usecase/film"
	"github.com/khoahotran/filmila/pkg/logger"
)

type FeedHandler struct {
	feedUseCase *filmUC.ReleasesFeedUseCase
	logger      logger.Logger
}

func NewFeedHandler(uc *filmUC.ReleasesFeedUseCase, log logger.Logger) *FeedHandler {
	return &FeedHandler{
		feedUseCase: uc,
		logger:      log,
	}
}

func (h *FeedHandler) ReleasesRSS(c *gin.Context) {
	feed, err := h.feedUseCase.Execute(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	if err := feed.WriteRss(c.Writer); err != nil {
		h.logger.Error("Failed to write RSS feed to response", err)
	}
}
