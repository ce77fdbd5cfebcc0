package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleViewer    Role = "viewer"
	RoleFilmmaker Role = "filmmaker"
)

func (r Role) Valid() bool {
	return r == RoleViewer || r == RoleFilmmaker
}

// User is a registered viewer. Role is fixed at registration.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) IsFilmmaker() bool {
	return u.Role == RoleFilmmaker
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}
