package service

import (
	"context"
	"errors"
)

// ErrPaymentIndeterminate means the processor could not give a final answer
// (timeout, network failure, ambiguous response). The charge may or may not
// have happened.
var ErrPaymentIndeterminate = errors.New("payment result indeterminate")

// ErrChargeNotFound means the processor holds no charge for the purchase.
var ErrChargeNotFound = errors.New("charge not found")

// MetadataPurchaseID is the charge metadata key carrying the purchase id, so
// processor callbacks can be matched back to a purchase.
const MetadataPurchaseID = "purchase_id"

type ChargeOutcome string

const (
	ChargeSucceeded ChargeOutcome = "succeeded"
	ChargeDeclined  ChargeOutcome = "declined"
	ChargePending   ChargeOutcome = "pending"
)

type ChargeRequest struct {
	// IdempotencyKey makes retries and replays of the same charge safe.
	IdempotencyKey string
	AmountCents    int64
	Currency       string
	InstrumentRef  string
	Metadata       map[string]string
}

type ChargeResult struct {
	ProcessorRef  string
	Outcome       ChargeOutcome
	DeclineReason string
}

type PaymentProcessor interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Lookup(ctx context.Context, processorRef string) (*ChargeResult, error)
	// FindByPurchase searches charges by the purchase id metadata. It returns
	// ErrChargeNotFound when none exists.
	FindByPurchase(ctx context.Context, purchaseID string) (*ChargeResult, error)
	// Cancel abandons an unfinished charge. A charge that completed in the
	// meantime is reported with its final outcome.
	Cancel(ctx context.Context, processorRef string) (*ChargeResult, error)
}

// PaymentNotification is a processor-pushed final result for a charge.
type PaymentNotification struct {
	EventID      string
	PurchaseID   string
	ProcessorRef string
	Outcome      ChargeOutcome
	Reason       string
}

// WebhookVerifier authenticates and decodes processor callbacks. It returns a
// nil notification for event types the service does not act on.
type WebhookVerifier interface {
	Verify(payload []byte, signature string) (*PaymentNotification, error)
}
