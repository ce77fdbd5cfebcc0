package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/khoahotran/filmila/internal/application/service"
)

type RevocationStoreIntegrationTestSuite struct {
	suite.Suite
	container *testcontainers.DockerContainer
	rdb       *redis.Client
	store     service.RevocationStore
}

func (s *RevocationStoreIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(1*time.Minute),
		),
	)
	if err != nil {
		s.T().Fatalf("Failed to start redis container: %s", err)
	}
	s.container = container

	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		s.T().Fatalf("Failed to get redis endpoint: %s", err)
	}
	s.rdb = redis.NewClient(&redis.Options{Addr: addr})
	s.store = NewRedisRevocationStore(s.rdb)
}

func (s *RevocationStoreIntegrationTestSuite) TearDownSuite() {
	if s.rdb != nil {
		s.rdb.Close()
	}
	if s.container != nil {
		if err := s.container.Terminate(context.Background()); err != nil {
			s.T().Fatalf("Failed to terminate redis container: %s", err)
		}
	}
}

func TestRevocationStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	suite.Run(t, new(RevocationStoreIntegrationTestSuite))
}

func (s *RevocationStoreIntegrationTestSuite) Test_RevokedTokenID() {
	ctx := context.Background()
	viewer := uuid.New()
	issued := time.Now()

	s.Require().NoError(s.store.RevokeToken(ctx, "jti-1", time.Minute))

	revoked, err := s.store.IsRevoked(ctx, "jti-1", viewer, issued)
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.store.IsRevoked(ctx, "jti-2", viewer, issued)
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RevocationStoreIntegrationTestSuite) Test_EpochHasMillisecondResolution() {
	ctx := context.Background()
	viewer := uuid.New()
	epoch := time.Date(2026, 3, 1, 12, 0, 0, 400*int(time.Millisecond), time.UTC)

	s.Require().NoError(s.store.RevokeAllBefore(ctx, viewer, epoch, time.Minute))

	revoked, err := s.store.IsRevoked(ctx, "old", viewer, epoch.Add(-100*time.Millisecond))
	s.Require().NoError(err)
	s.True(revoked)

	// Same second as the epoch, but issued after it.
	revoked, err = s.store.IsRevoked(ctx, "fresh", viewer, epoch.Add(300*time.Millisecond))
	s.Require().NoError(err)
	s.False(revoked)

	revoked, err = s.store.IsRevoked(ctx, "other-viewer", uuid.New(), epoch.Add(-time.Hour))
	s.Require().NoError(err)
	s.False(revoked)
}
