package entitlement

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/internal/domain/purchase"
)

type AccessReason string

const (
	ReasonOwner        AccessReason = "owner"
	ReasonFree         AccessReason = "free"
	ReasonPurchased    AccessReason = "purchased"
	ReasonNotPurchased AccessReason = "not_purchased"
)

type AccessDecision struct {
	Granted bool         `json:"granted"`
	Reason  AccessReason `json:"reason"`
}

type CheckAccessUseCase struct {
	filmRepo     film.Repository
	purchaseRepo purchase.Repository
}

func NewCheckAccessUseCase(fRepo film.Repository, pRepo purchase.Repository) *CheckAccessUseCase {
	return &CheckAccessUseCase{filmRepo: fRepo, purchaseRepo: pRepo}
}

// Execute reads the entitlement from storage on every call; decisions are
// never cached.
func (uc *CheckAccessUseCase) Execute(ctx context.Context, viewerID, filmID uuid.UUID) (*AccessDecision, error) {
	ctx, span := tracer.Start(ctx, "CheckAccess")
	defer span.End()

	_, decision, err := uc.evaluate(ctx, viewerID, filmID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("granted", decision.Granted), attribute.String("reason", string(decision.Reason)))
	return decision, nil
}

func (uc *CheckAccessUseCase) evaluate(ctx context.Context, viewerID, filmID uuid.UUID) (*film.Film, *AccessDecision, error) {
	f, err := uc.filmRepo.FindByID(ctx, filmID)
	if err != nil {
		return nil, nil, err
	}

	if f.IsOwnedBy(viewerID) {
		return f, &AccessDecision{Granted: true, Reason: ReasonOwner}, nil
	}
	if f.IsFree() {
		return f, &AccessDecision{Granted: true, Reason: ReasonFree}, nil
	}

	settled, err := uc.purchaseRepo.HasSettled(ctx, viewerID, filmID)
	if err != nil {
		return nil, nil, err
	}
	if settled {
		return f, &AccessDecision{Granted: true, Reason: ReasonPurchased}, nil
	}
	return f, &AccessDecision{Granted: false, Reason: ReasonNotPurchased}, nil
}
