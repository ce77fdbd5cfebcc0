package film

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Visibility string

const (
	VisibilityDraft     Visibility = "draft"
	VisibilityPublished Visibility = "published"
)

var (
	ErrInvalidTitle      = errors.New("title is required")
	ErrNegativePrice     = errors.New("price must not be negative")
	ErrAlreadyPublished  = errors.New("film is already published")
	ErrInvalidVisibility = errors.New("invalid visibility")
)

type Film struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	FilmType    string     `json:"film_type"`
	PriceCents  int64      `json:"price_cents"`
	Currency    string     `json:"currency"`
	Visibility  Visibility `json:"visibility"`
	// ContentKey locates the protected media in the Content Store.
	ContentKey        string     `json:"-"`
	ThumbnailPublicID *string    `json:"-"`
	ThumbnailURL      *string    `json:"thumbnail_url"`
	PublishedAt       *time.Time `json:"published_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (f *Film) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrInvalidTitle
	}
	if f.PriceCents < 0 {
		return ErrNegativePrice
	}
	switch f.Visibility {
	case VisibilityDraft, VisibilityPublished:
	default:
		return ErrInvalidVisibility
	}
	return nil
}

func (f *Film) IsPublished() bool {
	return f.Visibility == VisibilityPublished
}

// IsFree reports whether the film is explicitly priced at zero.
func (f *Film) IsFree() bool {
	return f.PriceCents == 0
}

func (f *Film) IsOwnedBy(viewerID uuid.UUID) bool {
	return f.OwnerID == viewerID
}

func (f *Film) Publish(now time.Time) error {
	if f.IsPublished() {
		return ErrAlreadyPublished
	}
	f.Visibility = VisibilityPublished
	f.PublishedAt = &now
	f.UpdatedAt = now
	return nil
}

type Repository interface {
	Save(ctx context.Context, f *Film) error
	Update(ctx context.Context, f *Film) error
	FindByID(ctx context.Context, id uuid.UUID) (*Film, error)
	ListPublished(ctx context.Context, limit, offset int) ([]*Film, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Film, error)
}
