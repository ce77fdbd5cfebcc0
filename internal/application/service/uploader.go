package service

import (
	"context"
	"io"
)

// Uploader stores public image assets such as film thumbnails.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, folder string, publicID string) (string, error)
	Delete(ctx context.Context, publicID string) error
	// TransformURL builds a delivery URL for an uploaded image with the
	// given transformation applied.
	TransformURL(publicID string, transformation string) (string, error)
}
