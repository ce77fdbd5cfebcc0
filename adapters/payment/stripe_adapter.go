package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/config"
	"github.com/khoahotran/filmila/pkg/logger"
)

type StripeProcessor struct {
	createIntent  func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	getIntent     func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	cancelIntent  func(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
	searchIntents func(params *stripe.PaymentIntentSearchParams) ([]*stripe.PaymentIntent, error)
	logger        logger.Logger
}

func NewStripeProcessor(cfg config.Config, log logger.Logger) (*StripeProcessor, error) {
	key := strings.TrimSpace(cfg.Stripe.SecretKey)
	if key == "" {
		return nil, fmt.Errorf("stripe secret_key has not config")
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Stripe.Timeout},
		MaxNetworkRetries: stripe.Int64(cfg.Stripe.MaxNetworkRetries),
	})
	client := paymentintent.Client{B: backend, Key: key}

	return &StripeProcessor{
		createIntent: client.New,
		getIntent:    client.Get,
		cancelIntent: client.Cancel,
		searchIntents: func(params *stripe.PaymentIntentSearchParams) ([]*stripe.PaymentIntent, error) {
			iter := client.Search(params)
			var intents []*stripe.PaymentIntent
			for iter.Next() {
				intents = append(intents, iter.PaymentIntent())
			}
			return intents, iter.Err()
		},
		logger: log,
	}, nil
}

// Charge creates and confirms a PaymentIntent. The idempotency key makes a
// replay return the original intent instead of charging again.
func (p *StripeProcessor) Charge(ctx context.Context, req service.ChargeRequest) (*service.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.InstrumentRef),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := p.createIntent(params)
	if err != nil {
		return p.classifyError(ctx, err)
	}
	return resultFromIntent(intent), nil
}

func (p *StripeProcessor) Lookup(ctx context.Context, processorRef string) (*service.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := p.getIntent(processorRef, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("payment intent %s not found: %w", processorRef, err)
		}
		return nil, fmt.Errorf("%w: %v", service.ErrPaymentIndeterminate, err)
	}
	return resultFromIntent(intent), nil
}

// FindByPurchase resolves a purchase whose intent id was never recorded. A
// succeeded intent wins over any other attempt carrying the same metadata.
func (p *StripeProcessor) FindByPurchase(ctx context.Context, purchaseID string) (*service.ChargeResult, error) {
	params := &stripe.PaymentIntentSearchParams{}
	params.Context = ctx
	params.Query = fmt.Sprintf("metadata['%s']:'%s'", service.MetadataPurchaseID, purchaseID)

	intents, err := p.searchIntents(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrPaymentIndeterminate, err)
	}
	if len(intents) == 0 {
		return nil, service.ErrChargeNotFound
	}
	found := intents[0]
	for _, intent := range intents {
		if intent.Status == stripe.PaymentIntentStatusSucceeded {
			found = intent
			break
		}
	}
	return resultFromIntent(found), nil
}

func (p *StripeProcessor) Cancel(ctx context.Context, processorRef string) (*service.ChargeResult, error) {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	intent, err := p.cancelIntent(processorRef, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
			// Succeeded or already canceled; report what it ended as.
			return p.Lookup(ctx, processorRef)
		}
		return nil, fmt.Errorf("%w: %v", service.ErrPaymentIndeterminate, err)
	}
	return resultFromIntent(intent), nil
}

func (p *StripeProcessor) classifyError(ctx context.Context, err error) (*service.ChargeResult, error) {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrPaymentIndeterminate, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", service.ErrPaymentIndeterminate, err)
	}

	switch {
	case stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
		stripeErr.Code == stripe.ErrorCodeRateLimit,
		stripeErr.Code == stripe.ErrorCodeLockTimeout:
		p.logger.Warn("Stripe throttled charge request", zap.String("code", string(stripeErr.Code)))
		return nil, fmt.Errorf("%w: %v", service.ErrPaymentIndeterminate, err)
	case stripeErr.Type == stripe.ErrorTypeCard:
		res := &service.ChargeResult{
			Outcome:       service.ChargeDeclined,
			DeclineReason: declineReason(stripeErr),
		}
		if stripeErr.PaymentIntent != nil {
			res.ProcessorRef = stripeErr.PaymentIntent.ID
		}
		return res, nil
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest && stripeErr.HTTPStatusCode < http.StatusInternalServerError:
		// Unusable instrument (unknown payment method, bad currency).
		p.logger.Warn("Stripe rejected charge request", zap.String("code", string(stripeErr.Code)), zap.String("msg", stripeErr.Msg))
		return &service.ChargeResult{Outcome: service.ChargeDeclined, DeclineReason: declineReason(stripeErr)}, nil
	default:
		return nil, fmt.Errorf("%w: %v", service.ErrPaymentIndeterminate, err)
	}
}

func declineReason(e *stripe.Error) string {
	if e.DeclineCode != "" {
		return string(e.DeclineCode)
	}
	if e.Code != "" {
		return string(e.Code)
	}
	return e.Msg
}

func resultFromIntent(intent *stripe.PaymentIntent) *service.ChargeResult {
	res := &service.ChargeResult{ProcessorRef: intent.ID}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		res.Outcome = service.ChargeSucceeded
	// Charges confirm without redirects, so an intent asking for customer
	// action or confirmation can never complete.
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled,
		stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		res.Outcome = service.ChargeDeclined
		res.DeclineReason = string(intent.Status)
		if intent.LastPaymentError != nil {
			res.DeclineReason = declineReason(intent.LastPaymentError)
		}
	default:
		res.Outcome = service.ChargePending
	}
	return res
}
