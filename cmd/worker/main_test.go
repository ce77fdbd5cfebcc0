package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/khoahotran/filmila/internal/application/service"
	entitlementUC "github.com/khoahotran/filmila/internal/application/usecase/entitlement"
	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/internal/domain/purchase"
	"github.com/khoahotran/filmila/internal/testutil"
	"github.com/khoahotran/filmila/pkg/logger"
)

func TestRunReconciler_OneSummaryPerPass(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := logger.NewFromZap(zap.New(core))

	purchases := testutil.NewPurchaseRepo()
	processor := testutil.NewProcessor(service.ChargeSucceeded)
	settle := entitlementUC.NewSettlePurchaseUseCase(purchases, &testutil.Publisher{}, log)
	uc := entitlementUC.NewReconcileUseCase(purchases, processor, settle, log, entitlementUC.ReconcileOptions{})

	fm := &film.Film{
		ID:         uuid.New(),
		OwnerID:    uuid.New(),
		Title:      "Night Train",
		PriceCents: 499,
		Currency:   "usd",
		Visibility: film.VisibilityPublished,
	}
	p := purchase.NewPending(uuid.New(), fm, "pm_card_visa", time.Now().UTC().Add(-time.Minute))
	created, err := purchases.CreatePending(context.Background(), p)
	require.NoError(t, err)
	require.True(t, created)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runReconciler(ctx, uc, 5*time.Millisecond, log)
		close(done)
	}()

	require.Eventually(t, func() bool {
		stored, err := purchases.FindByID(context.Background(), p.ID)
		return err == nil && stored.Status == purchase.StatusSettled
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, logs.FilterMessage("Reconciliation pass finished").Len())
}
