package media_storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *s3.Client {
	return s3.New(s3.Options{
		Region: "us-east-1",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIDTEST", SecretAccessKey: "secret"}, nil
		}),
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
	})
}

func TestS3ContentStore_LocateIsTimeLimited(t *testing.T) {
	store := newS3ContentStore(newTestClient(), "films", 15*time.Minute)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	loc, err := store.Locate(context.Background(), "/films/f1/master.mp4")
	require.NoError(t, err)

	u, err := url.Parse(loc.URL)
	require.NoError(t, err)
	assert.Equal(t, "/films/films/f1/master.mp4", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, fixed.Add(15*time.Minute), loc.ExpiresAt)
}

func TestS3ContentStore_RejectsEmptyKey(t *testing.T) {
	store := newS3ContentStore(newTestClient(), "films", 0)

	_, err := store.Locate(context.Background(), "")
	assert.Error(t, err)

	err = store.Put(context.Background(), "/", nil, "video/mp4")
	assert.Error(t, err)
}
