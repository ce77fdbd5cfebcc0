package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/internal/domain/purchase"
	"github.com/khoahotran/filmila/internal/domain/user"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

type PurchaseRepoIntegrationTestSuite struct {
	suite.Suite
	dbPool       *pgxpool.Pool
	pgContainer  *postgres.PostgresContainer
	testLogger   logger.Logger
	userRepo     user.Repository
	filmRepo     film.Repository
	purchaseRepo purchase.Repository
	filmmaker    *user.User
	viewer       *user.User
}

func (s *PurchaseRepoIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(1*time.Minute),
		),
	)
	if err != nil {
		s.T().Fatalf("Failed to start postgres container: %s", err)
	}
	s.pgContainer = pgContainer

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		s.T().Fatalf("Failed to get connection string: %s", err)
	}

	m, err := migrate.New("file://../../migrations", dsn)
	if err != nil {
		s.T().Fatalf("Failed to create migrate instance: %s", err)
	}
	if err := m.Up(); err != nil {
		s.T().Fatalf("Failed to run migrations: %s", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		s.T().Fatalf("Failed to create pgxpool: %s", err)
	}
	s.dbPool = pool
	s.testLogger = logger.NewNopLogger()

	s.userRepo = NewPostgresUserRepo(s.dbPool, s.testLogger)
	s.filmRepo = NewPostgresFilmRepo(s.dbPool, s.testLogger)
	s.purchaseRepo = NewPostgresPurchaseRepo(s.dbPool, s.testLogger)

	s.filmmaker = &user.User{ID: uuid.New(), Email: "maker@example.com", PasswordHash: "hash", Role: user.RoleFilmmaker, CreatedAt: time.Now().UTC()}
	s.viewer = &user.User{ID: uuid.New(), Email: "viewer@example.com", PasswordHash: "hash", Role: user.RoleViewer, CreatedAt: time.Now().UTC()}
	s.Require().NoError(s.userRepo.Create(ctx, s.filmmaker))
	s.Require().NoError(s.userRepo.Create(ctx, s.viewer))
}

func (s *PurchaseRepoIntegrationTestSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(context.Background()); err != nil {
			s.T().Fatalf("Failed to terminate postgres container: %s", err)
		}
	}
}

func TestPurchaseRepoIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	suite.Run(t, new(PurchaseRepoIntegrationTestSuite))
}

func (s *PurchaseRepoIntegrationTestSuite) newPublishedFilm(price int64) *film.Film {
	now := time.Now().UTC()
	f := &film.Film{
		ID: uuid.New(), OwnerID: s.filmmaker.ID, Title: "Integration Film", PriceCents: price,
		Currency: "usd", Visibility: film.VisibilityPublished, ContentKey: "films/x", PublishedAt: &now,
		CreatedAt: now, UpdatedAt: now,
	}
	s.Require().NoError(s.filmRepo.Save(context.Background(), f))
	return f
}

func (s *PurchaseRepoIntegrationTestSuite) Test_DuplicateEmailIsConflict() {
	dup := &user.User{ID: uuid.New(), Email: s.viewer.Email, PasswordHash: "x", Role: user.RoleViewer, CreatedAt: time.Now()}
	err := s.userRepo.Create(context.Background(), dup)
	s.ErrorIs(err, apperror.ErrConflict)
}

func (s *PurchaseRepoIntegrationTestSuite) Test_CreatePending_OneWinnerUnderRace() {
	ctx := context.Background()
	f := s.newPublishedFilm(499)

	const racers = 8
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := purchase.NewPending(s.viewer.ID, f, "pm_card_visa", time.Now().UTC())
			created, err := s.purchaseRepo.CreatePending(ctx, p)
			s.NoError(err)
			if created {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())

	active, err := s.purchaseRepo.FindActive(ctx, s.viewer.ID, f.ID)
	s.Require().NoError(err)
	s.Equal(purchase.StatusPending, active.Status)
	s.Equal(int64(499), active.AmountCents)
}

func (s *PurchaseRepoIntegrationTestSuite) Test_TransitionsAreExactlyOnce() {
	ctx := context.Background()
	f := s.newPublishedFilm(999)

	p := purchase.NewPending(s.viewer.ID, f, "pm_card_visa", time.Now().UTC())
	created, err := s.purchaseRepo.CreatePending(ctx, p)
	s.Require().NoError(err)
	s.Require().True(created)

	s.Require().NoError(s.purchaseRepo.AttachProcessorRef(ctx, p.ID, "pi_123"))
	s.Require().NoError(s.purchaseRepo.MarkSettled(ctx, p.ID, "", time.Now().UTC()))

	s.ErrorIs(s.purchaseRepo.MarkFailed(ctx, p.ID, "", "late", time.Now().UTC()), purchase.ErrNotPending)
	s.ErrorIs(s.purchaseRepo.MarkSettled(ctx, p.ID, "pi_999", time.Now().UTC()), purchase.ErrNotPending)

	got, err := s.purchaseRepo.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(purchase.StatusSettled, got.Status)
	s.Equal("pi_123", *got.ProcessorRef)
	s.NotNil(got.SettledAt)

	settled, err := s.purchaseRepo.HasSettled(ctx, s.viewer.ID, f.ID)
	s.NoError(err)
	s.True(settled)

	again := purchase.NewPending(s.viewer.ID, f, "pm_card_visa", time.Now().UTC())
	created, err = s.purchaseRepo.CreatePending(ctx, again)
	s.NoError(err)
	s.False(created)
}

func (s *PurchaseRepoIntegrationTestSuite) Test_FailedAttemptFreesThePair() {
	ctx := context.Background()
	f := s.newPublishedFilm(299)

	first := purchase.NewPending(s.viewer.ID, f, "pm_card_declined", time.Now().UTC())
	created, err := s.purchaseRepo.CreatePending(ctx, first)
	s.Require().NoError(err)
	s.Require().True(created)
	s.Require().NoError(s.purchaseRepo.MarkFailed(ctx, first.ID, "pi_1", "card_declined", time.Now().UTC()))

	second := purchase.NewPending(s.viewer.ID, f, "pm_card_visa", time.Now().UTC())
	created, err = s.purchaseRepo.CreatePending(ctx, second)
	s.Require().NoError(err)
	s.True(created)

	history, err := s.purchaseRepo.ListByViewer(ctx, s.viewer.ID, 100, 0)
	s.Require().NoError(err)
	ids := map[uuid.UUID]purchase.Status{}
	for _, p := range history {
		ids[p.ID] = p.Status
	}
	s.Equal(purchase.StatusFailed, ids[first.ID])
	s.Equal(purchase.StatusPending, ids[second.ID])
}

func (s *PurchaseRepoIntegrationTestSuite) Test_ListPendingBefore() {
	ctx := context.Background()
	f := s.newPublishedFilm(150)

	old := purchase.NewPending(s.viewer.ID, f, "pm", time.Now().UTC().Add(-time.Hour))
	created, err := s.purchaseRepo.CreatePending(ctx, old)
	s.Require().NoError(err)
	s.Require().True(created)

	pending, err := s.purchaseRepo.ListPendingBefore(ctx, time.Now().UTC().Add(-30*time.Minute), 100)
	s.Require().NoError(err)

	found := false
	for _, p := range pending {
		if p.ID == old.ID {
			found = true
		}
	}
	s.True(found)
}

func (s *PurchaseRepoIntegrationTestSuite) Test_FilmListings() {
	ctx := context.Background()
	now := time.Now().UTC()
	draft := &film.Film{
		ID: uuid.New(), OwnerID: s.filmmaker.ID, Title: "Draft", PriceCents: 0, Currency: "usd",
		Visibility: film.VisibilityDraft, ContentKey: "films/d", CreatedAt: now, UpdatedAt: now,
	}
	s.Require().NoError(s.filmRepo.Save(ctx, draft))
	published := s.newPublishedFilm(100)

	public, err := s.filmRepo.ListPublished(ctx, 100, 0)
	s.Require().NoError(err)
	for _, f := range public {
		s.NotEqual(draft.ID, f.ID)
	}

	mine, err := s.filmRepo.ListByOwner(ctx, s.filmmaker.ID, 100, 0)
	s.Require().NoError(err)
	seen := map[uuid.UUID]bool{}
	for _, f := range mine {
		seen[f.ID] = true
	}
	s.True(seen[draft.ID])
	s.True(seen[published.ID])

	_, err = s.filmRepo.FindByID(ctx, uuid.New())
	s.ErrorIs(err, apperror.ErrNotFound)
}
