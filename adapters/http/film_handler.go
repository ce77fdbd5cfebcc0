package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	filmUC "github.com/khoahotran/filmila/internal/application/usecase/film"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

type FilmHandler struct {
	uploadFilmUseCase    *filmUC.UploadFilmUseCase
	publishFilmUseCase   *filmUC.PublishFilmUseCase
	listPublishedUseCase *filmUC.ListPublishedFilmsUseCase
	listOwnUseCase       *filmUC.ListOwnFilmsUseCase
	getFilmUseCase       *filmUC.GetFilmUseCase
	logger               logger.Logger
}

func NewFilmHandler(
	uploadUC *filmUC.UploadFilmUseCase,
	publishUC *filmUC.PublishFilmUseCase,
	listPublishedUC *filmUC.ListPublishedFilmsUseCase,
	listOwnUC *filmUC.ListOwnFilmsUseCase,
	getUC *filmUC.GetFilmUseCase,
	log logger.Logger,
) *FilmHandler {
	return &FilmHandler{
		uploadFilmUseCase:    uploadUC,
		publishFilmUseCase:   publishUC,
		listPublishedUseCase: listPublishedUC,
		listOwnUseCase:       listOwnUC,
		getFilmUseCase:       getUC,
		logger:               log,
	}
}

func pageParams(c *gin.Context) filmUC.ListFilmsInput {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return filmUC.ListFilmsInput{Page: page, Limit: limit}
}

func filmIDParam(c *gin.Context) (uuid.UUID, bool) {
	filmID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid film ID", err))
		return uuid.Nil, false
	}
	return filmID, true
}

func (h *FilmHandler) UploadFilm(c *gin.Context) {
	ownerID, ok := GetViewerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("viewerID not found in context", nil))
		return
	}
	role, _ := GetRoleFromGinContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.Error(apperror.NewInvalidInput("file is required", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.NewInternal("cannot open uploaded file", err))
		return
	}
	defer file.Close()

	input := filmUC.UploadFilmInput{
		OwnerID:     ownerID,
		Role:        role,
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		FilmType:    c.PostForm("film_type"),
		File:        file,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}

	if raw := strings.TrimSpace(c.PostForm("price_cents")); raw != "" {
		price, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.Error(apperror.NewInvalidInput("price_cents must be an integer", err))
			return
		}
		input.PriceCents = &price
	}

	if thumbHeader, err := c.FormFile("thumbnail"); err == nil && thumbHeader.Size > 0 {
		thumb, err := thumbHeader.Open()
		if err != nil {
			h.logger.Warn("Cannot open thumbnail, continuing without it", zap.Error(err))
		} else {
			defer thumb.Close()
			input.Thumbnail = thumb
		}
	}

	f, err := h.uploadFilmUseCase.Execute(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ToFilmDTO(f))
}

func (h *FilmHandler) PublishFilm(c *gin.Context) {
	ownerID, ok := GetViewerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("viewerID not found in context", nil))
		return
	}
	filmID, ok := filmIDParam(c)
	if !ok {
		return
	}

	f, err := h.publishFilmUseCase.Execute(c.Request.Context(), ownerID, filmID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToFilmDTO(f))
}

func (h *FilmHandler) ListFilms(c *gin.Context) {
	output, err := h.listPublishedUseCase.Execute(c.Request.Context(), pageParams(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"films": ToFilmDTOs(output.Films), "page": output.Page, "limit": output.Limit})
}

func (h *FilmHandler) ListMyFilms(c *gin.Context) {
	ownerID, ok := GetViewerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("viewerID not found in context", nil))
		return
	}
	output, err := h.listOwnUseCase.Execute(c.Request.Context(), ownerID, pageParams(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"films": ToFilmDTOs(output.Films), "page": output.Page, "limit": output.Limit})
}

// GetFilm is public; drafts are only visible when the owner's token is sent.
func (h *FilmHandler) GetFilm(c *gin.Context) {
	filmID, ok := filmIDParam(c)
	if !ok {
		return
	}
	viewerID, _ := GetViewerIDFromGinContext(c)

	f, err := h.getFilmUseCase.Execute(c.Request.Context(), viewerID, filmID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToFilmDTO(f))
}
