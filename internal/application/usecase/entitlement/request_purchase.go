package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/adapters/event"
	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/internal/domain/purchase"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

type PurchaseOptions struct {
	// AwaitWindow bounds how long a request waits on a concurrent pending
	// purchase before answering "processing".
	AwaitWindow   time.Duration
	AwaitInterval time.Duration
	// ChargeTimeout bounds the processor call, retries included.
	ChargeTimeout time.Duration
}

type RequestPurchaseUseCase struct {
	filmRepo     film.Repository
	purchaseRepo purchase.Repository
	processor    service.PaymentProcessor
	settle       *SettlePurchaseUseCase
	publisher    service.EventPublisher
	logger       logger.Logger
	opts         PurchaseOptions
}

func NewRequestPurchaseUseCase(
	fRepo film.Repository,
	pRepo purchase.Repository,
	processor service.PaymentProcessor,
	settle *SettlePurchaseUseCase,
	publisher service.EventPublisher,
	log logger.Logger,
	opts PurchaseOptions,
) *RequestPurchaseUseCase {
	if opts.AwaitInterval <= 0 {
		opts.AwaitInterval = 200 * time.Millisecond
	}
	if opts.ChargeTimeout <= 0 {
		opts.ChargeTimeout = 45 * time.Second
	}
	return &RequestPurchaseUseCase{
		filmRepo:     fRepo,
		purchaseRepo: pRepo,
		processor:    processor,
		settle:       settle,
		publisher:    publisher,
		logger:       log,
		opts:         opts,
	}
}

type RequestPurchaseInput struct {
	ViewerID      uuid.UUID
	FilmID        uuid.UUID
	InstrumentRef string
}

// Execute returns the settled purchase, or a pending one when the processor
// result is not known yet. A declined charge is returned as PaymentDeclined.
func (uc *RequestPurchaseUseCase) Execute(ctx context.Context, input RequestPurchaseInput) (*purchase.Purchase, error) {
	ctx, span := tracer.Start(ctx, "RequestPurchase")
	defer span.End()
	span.SetAttributes(
		attribute.String("viewer_id", input.ViewerID.String()),
		attribute.String("film_id", input.FilmID.String()),
	)

	p, err := uc.execute(ctx, input)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("purchase_id", p.ID.String()), attribute.String("status", string(p.Status)))
	return p, nil
}

func (uc *RequestPurchaseUseCase) execute(ctx context.Context, input RequestPurchaseInput) (*purchase.Purchase, error) {
	instrument := strings.TrimSpace(input.InstrumentRef)
	if instrument == "" {
		return nil, apperror.NewInvalidInput("payment_instrument_ref is required", nil)
	}

	f, err := uc.filmRepo.FindByID(ctx, input.FilmID)
	if err != nil {
		return nil, err
	}
	if !f.IsPublished() {
		return nil, apperror.NewFilmNotPublished(f.ID.String())
	}
	if f.IsOwnedBy(input.ViewerID) || f.IsFree() {
		return nil, apperror.NewInvalidInput("viewer is already entitled to this film", nil)
	}

	deadline := time.Now().Add(uc.opts.AwaitWindow)
	for {
		active, err := uc.purchaseRepo.FindActive(ctx, input.ViewerID, input.FilmID)
		if err == nil {
			if active.IsSettled() {
				return active, nil
			}
			return uc.await(ctx, active, deadline)
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}

		p := purchase.NewPending(input.ViewerID, f, instrument, time.Now().UTC())
		created, err := uc.purchaseRepo.CreatePending(ctx, p)
		if err != nil {
			return nil, err
		}
		if created {
			return uc.charge(ctx, p)
		}

		// Lost the insert to a concurrent request; its row is found on the
		// next pass unless it already failed.
		if !time.Now().Before(deadline) {
			return nil, apperror.NewConflict("purchase", "film", f.ID.String())
		}
	}
}

func (uc *RequestPurchaseUseCase) charge(ctx context.Context, p *purchase.Purchase) (*purchase.Purchase, error) {
	l := uc.logger.With(zap.String("purchase_id", p.ID.String()), zap.String("film_id", p.FilmID.String()))
	publishPurchaseEvent(uc.publisher, uc.logger, event.PurchaseEventTypePending, p)

	// The outcome must be recorded even if the caller goes away mid-charge.
	chargeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.opts.ChargeTimeout)
	defer cancel()

	res, err := uc.processor.Charge(chargeCtx, service.ChargeRequest{
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
	if err != nil {
		l.Warn("Payment result indeterminate, purchase left pending", zap.Error(err))
		return p, nil
	}

	settled, err := uc.settle.Execute(chargeCtx, p.ID, res)
	if err != nil {
		l.Error("Failed to record payment result", err, zap.String("outcome", string(res.Outcome)))
		return nil, err
	}
	return result(settled)
}

// await polls a pending purchase until it reaches a terminal state or the
// deadline passes, in which case the pending purchase is returned.
func (uc *RequestPurchaseUseCase) await(ctx context.Context, p *purchase.Purchase, deadline time.Time) (*purchase.Purchase, error) {
	ticker := time.NewTicker(uc.opts.AwaitInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return p, nil
		case <-ticker.C:
		}

		cur, err := uc.purchaseRepo.FindByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if cur.Status.IsTerminal() {
			return result(cur)
		}
		p = cur
	}
	return p, nil
}

func result(p *purchase.Purchase) (*purchase.Purchase, error) {
	if p.Status == purchase.StatusFailed {
		reason := "declined"
		if p.FailureReason != nil {
			reason = *p.FailureReason
		}
		return nil, apperror.NewPaymentDeclined(fmt.Sprintf("purchase %s: %s", p.ID, reason), nil)
	}
	return p, nil
}
