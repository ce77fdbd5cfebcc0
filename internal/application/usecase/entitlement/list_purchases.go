package entitlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/khoahotran/filmila/internal/domain/purchase"
	"github.com/khoahotran/filmila/pkg/apperror"
)

type ListPurchasesUseCase struct {
	purchaseRepo purchase.Repository
}

func NewListPurchasesUseCase(pRepo purchase.Repository) *ListPurchasesUseCase {
	return &ListPurchasesUseCase{purchaseRepo: pRepo}
}

type ListPurchasesInput struct {
	ViewerID uuid.UUID
	Page     int
	Limit    int
}

type ListPurchasesOutput struct {
	Purchases []*purchase.Purchase `json:"purchases"`
	Page      int                  `json:"page"`
	Limit     int                  `json:"limit"`
}

func (uc *ListPurchasesUseCase) Execute(ctx context.Context, input ListPurchasesInput) (*ListPurchasesOutput, error) {
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 20
	}
	if input.Page <= 0 {
		input.Page = 1
	}
	offset := (input.Page - 1) * input.Limit

	purchases, err := uc.purchaseRepo.ListByViewer(ctx, input.ViewerID, input.Limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListPurchasesOutput{Purchases: purchases, Page: input.Page, Limit: input.Limit}, nil
}

type GetPurchaseUseCase struct {
	purchaseRepo purchase.Repository
}

func NewGetPurchaseUseCase(pRepo purchase.Repository) *GetPurchaseUseCase {
	return &GetPurchaseUseCase{purchaseRepo: pRepo}
}

// Execute reports another viewer's purchase as not found.
func (uc *GetPurchaseUseCase) Execute(ctx context.Context, viewerID, purchaseID uuid.UUID) (*purchase.Purchase, error) {
	p, err := uc.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if p.ViewerID != viewerID {
		return nil, apperror.NewNotFound("purchase", purchaseID.String())
	}
	return p, nil
}
