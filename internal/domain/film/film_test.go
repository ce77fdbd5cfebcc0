package film

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilm_Validate(t *testing.T) {
	f := &Film{Title: "Night Train", PriceCents: 0, Visibility: VisibilityDraft}
	assert.NoError(t, f.Validate())

	f.Title = "  "
	assert.ErrorIs(t, f.Validate(), ErrInvalidTitle)

	f.Title = "Night Train"
	f.PriceCents = -1
	assert.ErrorIs(t, f.Validate(), ErrNegativePrice)

	f.PriceCents = 100
	f.Visibility = "archived"
	assert.ErrorIs(t, f.Validate(), ErrInvalidVisibility)
}

func TestFilm_Publish(t *testing.T) {
	f := &Film{ID: uuid.New(), Title: "x", Visibility: VisibilityDraft}
	now := time.Now()

	require.NoError(t, f.Publish(now))
	assert.True(t, f.IsPublished())
	assert.Equal(t, now, *f.PublishedAt)

	assert.ErrorIs(t, f.Publish(now), ErrAlreadyPublished)
}

func TestFilm_OwnershipAndFree(t *testing.T) {
	owner := uuid.New()
	f := &Film{OwnerID: owner, PriceCents: 0}

	assert.True(t, f.IsOwnedBy(owner))
	assert.False(t, f.IsOwnedBy(uuid.New()))
	assert.True(t, f.IsFree())

	f.PriceCents = 1
	assert.False(t, f.IsFree())
}
