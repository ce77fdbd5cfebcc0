package service

import (
	"context"
	"io"
	"time"
)

// ContentLocator is a time-limited address of protected film media.
type ContentLocator struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ContentStore holds protected film media.
type ContentStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Locate(ctx context.Context, key string) (*ContentLocator, error)
}
