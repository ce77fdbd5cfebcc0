package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RevocationStore backs logout for otherwise stateless tokens.
type RevocationStore interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	RevokeAllBefore(ctx context.Context, viewerID uuid.UUID, before time.Time, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string, viewerID uuid.UUID, issuedAt time.Time) (bool, error)
}
