package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrSignatureInvalid is returned when a webhook payload cannot be
// authenticated.  Nothing in such a payload may be trusted.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// EventCheckoutCompleted is the only event type the workflow acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// Confirmation is the verified content of a checkout.session.completed
// event.
type Confirmation struct {
	EventID          string
	SessionReference string
	PaymentStatus    string
	Metadata         map[string]string
}

// WebhookVerifier authenticates Stripe-Signature headers.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Parse verifies payload against the signature header.  It returns
// ErrSignatureInvalid for unauthenticated payloads and (nil, eventID, nil)
// for verified events of a type the workflow ignores.
func (v *WebhookVerifier) Parse(payload []byte, sigHeader string) (*Confirmation, string, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if string(event.Type) != EventCheckoutCompleted {
		return nil, event.ID, nil
	}
	if event.Data == nil {
		return nil, event.ID, fmt.Errorf("event %s has no data", event.ID)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, event.ID, fmt.Errorf("decode checkout session: %w", err)
	}
	return &Confirmation{
		EventID:          event.ID,
		SessionReference: s.ID,
		PaymentStatus:    string(s.PaymentStatus),
		Metadata:         s.Metadata,
	}, event.ID, nil
}
