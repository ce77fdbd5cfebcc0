package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/khoahotran/filmila/internal/application/service"
)

type stripeWebhookVerifier struct {
	secret string
}

func NewStripeWebhookVerifier(secret string) service.WebhookVerifier {
	return &stripeWebhookVerifier{secret: secret}
}

func (v *stripeWebhookVerifier) Verify(payload []byte, signature string) (*service.PaymentNotification, error) {
	if strings.TrimSpace(v.secret) == "" {
		return nil, fmt.Errorf("webhook secret not configured")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid stripe signature: %w", err)
	}

	var outcome service.ChargeOutcome
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		outcome = service.ChargeSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		outcome = service.ChargeDeclined
	default:
		return nil, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("decode payment_intent: %w", err)
	}

	n := &service.PaymentNotification{
		EventID:      event.ID,
		PurchaseID:   intent.Metadata[service.MetadataPurchaseID],
		ProcessorRef: intent.ID,
		Outcome:      outcome,
	}
	if outcome == service.ChargeDeclined {
		n.Reason = string(event.Type)
		if intent.LastPaymentError != nil {
			n.Reason = declineReason(intent.LastPaymentError)
		}
	}
	return n, nil
}
