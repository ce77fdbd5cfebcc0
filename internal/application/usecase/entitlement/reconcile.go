package entitlement

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/domain/purchase"
	"github.com/khoahotran/filmila/pkg/logger"
)

type ReconcileOptions struct {
	// After is the minimum age of a pending purchase before it is checked.
	After     time.Duration
	BatchSize int
	// ReplayWindow bounds how long a charge may be replayed under its
	// idempotency key. Stripe forgets keys after 24h.
	ReplayWindow time.Duration
	// AbandonAfter cancels charges still unfinished at this age. Zero never
	// abandons.
	AbandonAfter time.Duration
}

const (
	defaultReplayWindow = 23 * time.Hour
	reasonAbandoned     = "abandoned"
	reasonNoCharge      = "no_charge"
)

type ReconcileReport struct {
	Checked      int
	Settled      int
	Failed       int
	StillPending int
}

// ReconcileUseCase asks the processor for the final result of purchases
// that the request path left pending.
type ReconcileUseCase struct {
	purchaseRepo purchase.Repository
	processor    service.PaymentProcessor
	settle       *SettlePurchaseUseCase
	logger       logger.Logger
	opts         ReconcileOptions
	now          func() time.Time
}

func NewReconcileUseCase(pRepo purchase.Repository, processor service.PaymentProcessor, settle *SettlePurchaseUseCase, log logger.Logger, opts ReconcileOptions) *ReconcileUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.ReplayWindow <= 0 {
		opts.ReplayWindow = defaultReplayWindow
	}
	return &ReconcileUseCase{
		purchaseRepo: pRepo,
		processor:    processor,
		settle:       settle,
		logger:       log,
		opts:         opts,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ReconcileUseCase) Execute(ctx context.Context) (*ReconcileReport, error) {
	ctx, span := tracer.Start(ctx, "Reconcile")
	defer span.End()

	pending, err := uc.purchaseRepo.ListPendingBefore(ctx, uc.now().Add(-uc.opts.After), uc.opts.BatchSize)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	report := &ReconcileReport{}
	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}
		report.Checked++

		status, err := uc.reconcileOne(ctx, p)
		if err != nil {
			uc.logger.Warn("Reconciliation of purchase failed", zap.String("purchase_id", p.ID.String()), zap.Error(err))
			report.StillPending++
			continue
		}
		switch status {
		case purchase.StatusSettled:
			report.Settled++
		case purchase.StatusFailed:
			report.Failed++
		default:
			report.StillPending++
		}
	}

	span.SetAttributes(
		attribute.Int("checked", report.Checked),
		attribute.Int("settled", report.Settled),
		attribute.Int("failed", report.Failed),
	)
	if report.Checked > 0 {
		uc.logger.Info("Reconciliation pass finished",
			zap.Int("checked", report.Checked), zap.Int("settled", report.Settled),
			zap.Int("failed", report.Failed), zap.Int("still_pending", report.StillPending))
	}
	return report, nil
}

// reconcileOne looks the charge up by processor reference. Without one it
// replays the charge under the purchase id idempotency key while the processor
// still remembers that key, and searches by purchase id after that. Charges
// left unfinished past AbandonAfter are cancelled and the purchase fails, so
// the viewer can start a fresh attempt.
func (uc *ReconcileUseCase) reconcileOne(ctx context.Context, p *purchase.Purchase) (purchase.Status, error) {
	age := uc.now().Sub(p.CreatedAt)

	var res *service.ChargeResult
	var err error
	switch {
	case p.ProcessorRef != nil && *p.ProcessorRef != "":
		res, err = uc.processor.Lookup(ctx, *p.ProcessorRef)
	case age < uc.opts.ReplayWindow:
		res, err = uc.processor.Charge(ctx, service.ChargeRequest{
			IdempotencyKey: p.ID.String(),
			AmountCents:    p.AmountCents,
			Currency:       p.Currency,
			InstrumentRef:  p.InstrumentRef,
			Metadata: map[string]string{
				service.MetadataPurchaseID: p.ID.String(),
				"film_id":                  p.FilmID.String(),
				"viewer_id":                p.ViewerID.String(),
			},
		})
	default:
		res, err = uc.processor.FindByPurchase(ctx, p.ID.String())
		if errors.Is(err, service.ErrChargeNotFound) {
			uc.logger.Warn("No charge found for expired pending purchase", zap.String("purchase_id", p.ID.String()))
			res, err = &service.ChargeResult{Outcome: service.ChargeDeclined, DeclineReason: reasonNoCharge}, nil
		}
	}
	if err != nil {
		return purchase.StatusPending, err
	}

	if res.Outcome == service.ChargePending && uc.opts.AbandonAfter > 0 && age >= uc.opts.AbandonAfter && res.ProcessorRef != "" {
		uc.logger.Info("Abandoning unfinished charge", zap.String("purchase_id", p.ID.String()), zap.String("processor_ref", res.ProcessorRef))
		res, err = uc.processor.Cancel(ctx, res.ProcessorRef)
		if err != nil {
			return purchase.StatusPending, err
		}
		if res.Outcome == service.ChargeDeclined && res.DeclineReason == "" {
			res.DeclineReason = reasonAbandoned
		}
	}

	updated, err := uc.settle.Execute(ctx, p.ID, res)
	if err != nil {
		return purchase.StatusPending, err
	}
	return updated.Status, nil
}
