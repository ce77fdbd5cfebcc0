package film

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/khoahotran/filmila/adapters/event"
	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/internal/domain/user"
	"github.com/khoahotran/filmila/internal/testutil"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

func price(c int64) *int64 { return &c }

type deps struct {
	films     *testutil.FilmRepo
	store     *testutil.ContentStore
	uploader  *testutil.Uploader
	publisher *testutil.Publisher
	upload    *UploadFilmUseCase
	publish   *PublishFilmUseCase
}

func newDeps() *deps {
	d := &deps{
		films:     testutil.NewFilmRepo(),
		store:     testutil.NewContentStore(),
		uploader:  testutil.NewUploader(),
		publisher: &testutil.Publisher{},
	}
	log := logger.NewNopLogger()
	d.upload = NewUploadFilmUseCase(d.films, d.store, d.uploader, d.publisher, "usd", log)
	d.publish = NewPublishFilmUseCase(d.films, d.publisher, log)
	return d
}

func (d *deps) uploadFilm(t *testing.T, owner uuid.UUID, cents int64) *film.Film {
	t.Helper()
	f, err := d.upload.Execute(context.Background(), UploadFilmInput{
		OwnerID:     owner,
		Role:        user.RoleFilmmaker,
		Title:       "Harbour Lights",
		Description: "A short film",
		FilmType:    "short",
		PriceCents:  price(cents),
		File:        strings.NewReader("film-bytes"),
		ContentType: "video/mp4",
		Thumbnail:   strings.NewReader("thumb-bytes"),
	})
	require.NoError(t, err)
	return f
}

func TestUploadFilm_StoresDraftAndPublishesEvent(t *testing.T) {
	d := newDeps()
	owner := uuid.New()

	f := d.uploadFilm(t, owner, 499)
	assert.Equal(t, film.VisibilityDraft, f.Visibility)
	assert.Equal(t, "usd", f.Currency)
	assert.Equal(t, "films/"+owner.String()+"/"+f.ID.String(), f.ContentKey)

	body, ok := d.store.Object(f.ContentKey)
	require.True(t, ok)
	assert.Equal(t, "film-bytes", string(body))
	require.NotNil(t, f.ThumbnailPublicID)

	assert.Eventually(t, func() bool {
		return len(d.publisher.FilmEventTypes()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, event.FilmEventTypeUploaded, d.publisher.FilmEventTypes()[0])
}

func TestUploadFilm_SaveFailureCleansUpThumbnail(t *testing.T) {
	d := newDeps()
	core, logs := observer.New(zap.ErrorLevel)
	d.upload = NewUploadFilmUseCase(d.films, d.store, d.uploader, d.publisher, "usd", logger.NewFromZap(zap.New(core)))
	d.films.SaveErr = errors.New("db down")
	d.uploader.DeleteErr = errors.New("cloudinary down")

	_, err := d.upload.Execute(context.Background(), UploadFilmInput{
		OwnerID:     uuid.New(),
		Role:        user.RoleFilmmaker,
		Title:       "Harbour Lights",
		FilmType:    "short",
		PriceCents:  price(499),
		File:        strings.NewReader("film-bytes"),
		ContentType: "video/mp4",
		Thumbnail:   strings.NewReader("thumb-bytes"),
	})
	require.Error(t, err)

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Failed to delete orphaned thumbnail").Len() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, d.uploader.DeletedIDs(), 1)
	assert.Empty(t, d.publisher.FilmEventTypes())
}

func TestUploadFilm_Rejections(t *testing.T) {
	d := newDeps()
	owner := uuid.New()
	ctx := context.Background()

	_, err := d.upload.Execute(ctx, UploadFilmInput{
		OwnerID: owner, Role: user.RoleViewer, Title: "x", PriceCents: price(100), File: strings.NewReader("a"),
	})
	assert.ErrorIs(t, err, apperror.ErrPermission)

	_, err = d.upload.Execute(ctx, UploadFilmInput{
		OwnerID: owner, Role: user.RoleFilmmaker, Title: "x", File: strings.NewReader("a"),
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput, "missing price must not default to free")

	_, err = d.upload.Execute(ctx, UploadFilmInput{
		OwnerID: owner, Role: user.RoleFilmmaker, Title: "x", PriceCents: price(-1), File: strings.NewReader("a"),
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = d.upload.Execute(ctx, UploadFilmInput{
		OwnerID: owner, Role: user.RoleFilmmaker, Title: "  ", PriceCents: price(0), File: strings.NewReader("a"),
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestPublishFilm(t *testing.T) {
	d := newDeps()
	owner := uuid.New()
	f := d.uploadFilm(t, owner, 0)
	ctx := context.Background()

	_, err := d.publish.Execute(ctx, uuid.New(), f.ID)
	assert.ErrorIs(t, err, apperror.ErrPermission)

	published, err := d.publish.Execute(ctx, owner, f.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished())
	require.NotNil(t, published.PublishedAt)

	again, err := d.publish.Execute(ctx, owner, f.ID)
	require.NoError(t, err)
	assert.Equal(t, published.PublishedAt.Unix(), again.PublishedAt.Unix())
}

func TestCatalogueHidesDrafts(t *testing.T) {
	d := newDeps()
	owner := uuid.New()
	draft := d.uploadFilm(t, owner, 499)
	public := d.uploadFilm(t, owner, 299)
	_, err := d.publish.Execute(context.Background(), owner, public.ID)
	require.NoError(t, err)

	list := NewListPublishedFilmsUseCase(d.films)
	out, err := list.Execute(context.Background(), ListFilmsInput{})
	require.NoError(t, err)
	require.Len(t, out.Films, 1)
	assert.Equal(t, public.ID, out.Films[0].ID)

	mine, err := NewListOwnFilmsUseCase(d.films).Execute(context.Background(), owner, ListFilmsInput{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, mine.Films, 2)
	assert.Equal(t, 20, mine.Limit)

	get := NewGetFilmUseCase(d.films)
	_, err = get.Execute(context.Background(), uuid.Nil, draft.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	got, err := get.Execute(context.Background(), owner, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)
}

func TestProcessFilm_BuildsThumbnail(t *testing.T) {
	d := newDeps()
	owner := uuid.New()
	f := d.uploadFilm(t, owner, 499)
	process := NewProcessFilmUseCase(d.films, d.uploader, logger.NewNopLogger())

	payload := event.FilmEventPayload{
		EventType:         event.FilmEventTypeUploaded,
		FilmID:            f.ID,
		OwnerID:           owner,
		ThumbnailPublicID: *f.ThumbnailPublicID,
	}
	require.NoError(t, process.Execute(context.Background(), payload))

	stored, err := d.films.FindByID(context.Background(), f.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ThumbnailURL)
	assert.Contains(t, *stored.ThumbnailURL, thumbnailTransformation)

	payload.FilmID = uuid.New()
	assert.NoError(t, process.Execute(context.Background(), payload), "unknown film is skipped")
}
