package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/internal/domain/purchase"
	"github.com/khoahotran/filmila/internal/domain/user"
)

// Auth DTOs
type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type ProfileDTO struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Role      user.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func ToProfileDTO(u *user.User) ProfileDTO {
	return ProfileDTO{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Film DTOs
type FilmDTO struct {
	ID           uuid.UUID       `json:"id"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	FilmType     string          `json:"film_type"`
	PriceCents   int64           `json:"price_cents"`
	Currency     string          `json:"currency"`
	Visibility   film.Visibility `json:"visibility"`
	ThumbnailURL *string         `json:"thumbnail_url,omitempty"`
	PublishedAt  *time.Time      `json:"published_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func ToFilmDTO(f *film.Film) FilmDTO {
	return FilmDTO{
		ID:           f.ID,
		OwnerID:      f.OwnerID,
		Title:        f.Title,
		Description:  f.Description,
		FilmType:     f.FilmType,
		PriceCents:   f.PriceCents,
		Currency:     f.Currency,
		Visibility:   f.Visibility,
		ThumbnailURL: f.ThumbnailURL,
		PublishedAt:  f.PublishedAt,
		CreatedAt:    f.CreatedAt,
	}
}

func ToFilmDTOs(films []*film.Film) []FilmDTO {
	dtos := make([]FilmDTO, len(films))
	for i, f := range films {
		dtos[i] = ToFilmDTO(f)
	}
	return dtos
}

// Purchase DTOs
type purchaseRequest struct {
	PaymentInstrumentRef string `json:"payment_instrument_ref" binding:"required"`
}

type PurchaseDTO struct {
	PurchaseID    uuid.UUID       `json:"purchase_id"`
	FilmID        uuid.UUID       `json:"film_id"`
	Status        purchase.Status `json:"status"`
	AmountCents   int64           `json:"amount_cents"`
	Currency      string          `json:"currency"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	SettledAt     *time.Time      `json:"settled_at,omitempty"`
}

func ToPurchaseDTO(p *purchase.Purchase) PurchaseDTO {
	return PurchaseDTO{
		PurchaseID:    p.ID,
		FilmID:        p.FilmID,
		Status:        p.Status,
		AmountCents:   p.AmountCents,
		Currency:      p.Currency,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
		SettledAt:     p.SettledAt,
	}
}
