package purchase

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/filmila/internal/domain/film"
)

func newFilm(price int64) *film.Film {
	return &film.Film{ID: uuid.New(), OwnerID: uuid.New(), Title: "f", PriceCents: price, Currency: "usd", Visibility: film.VisibilityPublished}
}

func TestNewPending_SnapshotsPrice(t *testing.T) {
	f := newFilm(499)
	p := NewPending(uuid.New(), f, "pm_card_visa", time.Now())

	f.PriceCents = 999

	assert.Equal(t, int64(499), p.AmountCents)
	assert.Equal(t, "usd", p.Currency)
	assert.Equal(t, StatusPending, p.Status)
}

func TestPurchase_SettleIsTerminal(t *testing.T) {
	p := NewPending(uuid.New(), newFilm(499), "pm", time.Now())

	require.NoError(t, p.Settle("pi_1", time.Now()))
	assert.True(t, p.IsSettled())
	assert.Equal(t, "pi_1", *p.ProcessorRef)
	assert.NotNil(t, p.SettledAt)

	assert.ErrorIs(t, p.Settle("pi_2", time.Now()), ErrNotPending)
	assert.ErrorIs(t, p.Fail("pi_2", "late", time.Now()), ErrNotPending)
	assert.Equal(t, "pi_1", *p.ProcessorRef)
}

func TestPurchase_FailIsTerminal(t *testing.T) {
	p := NewPending(uuid.New(), newFilm(499), "pm", time.Now())

	require.NoError(t, p.Fail("pi_1", "card_declined", time.Now()))
	assert.Equal(t, StatusFailed, p.Status)
	assert.Equal(t, "card_declined", *p.FailureReason)
	assert.Nil(t, p.SettledAt)

	assert.ErrorIs(t, p.Settle("pi_1", time.Now()), ErrNotPending)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusSettled.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}
