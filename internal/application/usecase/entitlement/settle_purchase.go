package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/adapters/event"
	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/domain/purchase"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

var tracer = otel.Tracer("entitlement_usecase")

// SettlePurchaseUseCase applies a processor result to a pending purchase. It
// is the only writer of purchase transitions, shared by the purchase path,
// the processor webhook and reconciliation.
type SettlePurchaseUseCase struct {
	purchaseRepo purchase.Repository
	publisher    service.EventPublisher
	logger       logger.Logger
	now          func() time.Time
}

func NewSettlePurchaseUseCase(pRepo purchase.Repository, publisher service.EventPublisher, log logger.Logger) *SettlePurchaseUseCase {
	return &SettlePurchaseUseCase{
		purchaseRepo: pRepo,
		publisher:    publisher,
		logger:       log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Execute transitions the purchase according to res and returns its current
// state. A purchase that already left pending is returned unchanged.
func (uc *SettlePurchaseUseCase) Execute(ctx context.Context, purchaseID uuid.UUID, res *service.ChargeResult) (*purchase.Purchase, error) {
	ctx, span := tracer.Start(ctx, "SettlePurchase")
	defer span.End()
	span.SetAttributes(
		attribute.String("purchase_id", purchaseID.String()),
		attribute.String("outcome", string(res.Outcome)),
	)

	l := uc.logger.With(zap.String("purchase_id", purchaseID.String()), zap.String("outcome", string(res.Outcome)))

	var err error
	var eventType event.PurchaseEventType
	switch res.Outcome {
	case service.ChargeSucceeded:
		err = uc.purchaseRepo.MarkSettled(ctx, purchaseID, res.ProcessorRef, uc.now())
		eventType = event.PurchaseEventTypeSettled
	case service.ChargeDeclined:
		reason := res.DeclineReason
		if reason == "" {
			reason = "declined"
		}
		err = uc.purchaseRepo.MarkFailed(ctx, purchaseID, res.ProcessorRef, reason, uc.now())
		eventType = event.PurchaseEventTypeFailed
	default:
		if res.ProcessorRef != "" {
			err = uc.purchaseRepo.AttachProcessorRef(ctx, purchaseID, res.ProcessorRef)
		}
	}

	if err != nil && !errors.Is(err, purchase.ErrNotPending) {
		span.RecordError(err)
		return nil, err
	}
	if errors.Is(err, purchase.ErrNotPending) {
		l.Info("Purchase already terminal, result ignored")
		eventType = ""
	}

	p, err := uc.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if eventType != "" {
		l.Info("Purchase transitioned", zap.String("status", string(p.Status)))
		publishPurchaseEvent(uc.publisher, uc.logger, eventType, p)
	}
	return p, nil
}

// ApplyNotification applies a processor callback. Callbacks for unknown
// purchases are logged and dropped so the processor stops retrying them.
func (uc *SettlePurchaseUseCase) ApplyNotification(ctx context.Context, n *service.PaymentNotification) error {
	l := uc.logger.With(zap.String("event_id", n.EventID), zap.String("processor_ref", n.ProcessorRef))

	purchaseID, err := uuid.Parse(n.PurchaseID)
	if err != nil {
		l.Warn("Payment notification without purchase id, skipping", zap.String("purchase_id", n.PurchaseID))
		return nil
	}

	_, err = uc.Execute(ctx, purchaseID, &service.ChargeResult{
		ProcessorRef:  n.ProcessorRef,
		Outcome:       n.Outcome,
		DeclineReason: n.Reason,
	})
	if errors.Is(err, apperror.ErrNotFound) {
		l.Warn("Payment notification for unknown purchase, skipping", zap.String("purchase_id", n.PurchaseID))
		return nil
	}
	return err
}

func publishPurchaseEvent(publisher service.EventPublisher, log logger.Logger, eventType event.PurchaseEventType, p *purchase.Purchase) {
	payload := event.PurchaseEventPayload{
		EventType:   eventType,
		PurchaseID:  p.ID,
		ViewerID:    p.ViewerID,
		FilmID:      p.FilmID,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
	}
	go func() {
		if err := publisher.PublishPurchaseEvent(context.Background(), payload); err != nil {
			log.Error("Failed to publish Kafka purchase event", err,
				zap.String("purchase_id", payload.PurchaseID.String()), zap.String("event_type", string(eventType)))
		}
	}()
}
