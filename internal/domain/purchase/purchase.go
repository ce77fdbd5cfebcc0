package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/filmila/internal/domain/film"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
	StatusFailed  Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusSettled || s == StatusFailed
}

var (
	// ErrNotPending is returned when a transition targets a purchase that
	// already settled or failed.
	ErrNotPending = errors.New("purchase is not pending")
)

// Purchase is the entitlement record for one (viewer, film) payment attempt.
type Purchase struct {
	ID            uuid.UUID  `json:"id"`
	ViewerID      uuid.UUID  `json:"viewer_id"`
	FilmID        uuid.UUID  `json:"film_id"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	InstrumentRef string     `json:"-"`
	ProcessorRef  *string    `json:"processor_ref"`
	Status        Status     `json:"status"`
	FailureReason *string    `json:"failure_reason"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	SettledAt     *time.Time `json:"settled_at"`
}

// NewPending starts a payment attempt, snapshotting the film's current price.
func NewPending(viewerID uuid.UUID, f *film.Film, instrumentRef string, now time.Time) *Purchase {
	return &Purchase{
		ID:            uuid.New(),
		ViewerID:      viewerID,
		FilmID:        f.ID,
		AmountCents:   f.PriceCents,
		Currency:      f.Currency,
		InstrumentRef: instrumentRef,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (p *Purchase) IsSettled() bool {
	return p.Status == StatusSettled
}

func (p *Purchase) Settle(processorRef string, now time.Time) error {
	if p.Status != StatusPending {
		return ErrNotPending
	}
	p.Status = StatusSettled
	if processorRef != "" {
		p.ProcessorRef = &processorRef
	}
	p.SettledAt = &now
	p.UpdatedAt = now
	return nil
}

func (p *Purchase) Fail(processorRef, reason string, now time.Time) error {
	if p.Status != StatusPending {
		return ErrNotPending
	}
	p.Status = StatusFailed
	if processorRef != "" {
		p.ProcessorRef = &processorRef
	}
	p.FailureReason = &reason
	p.UpdatedAt = now
	return nil
}

type Repository interface {
	// CreatePending inserts p unless the (viewer, film) pair already has a
	// pending or settled purchase. It reports whether the insert won.
	CreatePending(ctx context.Context, p *Purchase) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Purchase, error)
	// FindActive returns the pending or settled purchase for the pair.
	FindActive(ctx context.Context, viewerID, filmID uuid.UUID) (*Purchase, error)
	HasSettled(ctx context.Context, viewerID, filmID uuid.UUID) (bool, error)
	AttachProcessorRef(ctx context.Context, id uuid.UUID, processorRef string) error
	MarkSettled(ctx context.Context, id uuid.UUID, processorRef string, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, processorRef, reason string, at time.Time) error
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*Purchase, error)
	ListByViewer(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]*Purchase, error)
}
