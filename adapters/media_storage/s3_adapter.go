package media_storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/config"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

// s3ContentStore keeps film media in a private bucket and hands out
// presigned GET URLs as locators.
type s3ContentStore struct {
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
	now       func() time.Time
}

func NewS3ContentStore(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (service.ContentStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 content store: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if strings.TrimSpace(cfg.Endpoint) != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	log.Info("Content store ready.")
	return newS3ContentStore(client, cfg.Bucket, cfg.LocatorTTL), nil
}

func newS3ContentStore(client *s3.Client, bucket string, ttl time.Duration) *s3ContentStore {
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.LeavePartsOnError = false
	})
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &s3ContentStore{
		uploader:  uploader,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *s3ContentStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return fmt.Errorf("s3 content store: empty key")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return apperror.NewUpstreamUnavailable("content store", fmt.Errorf("upload %s: %w", key, err))
	}
	return nil
}

func (s *s3ContentStore) Locate(ctx context.Context, key string) (*service.ContentLocator, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return nil, apperror.NewInternal("film has no content key", nil)
	}

	issuedAt := s.now()
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, apperror.NewUpstreamUnavailable("content store", fmt.Errorf("presign %s: %w", key, err))
	}

	return &service.ContentLocator{
		URL:       req.URL,
		ExpiresAt: issuedAt.Add(s.ttl).UTC(),
	}, nil
}
