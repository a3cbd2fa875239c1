// Package payment adapts Stripe Checkout to the reservation workflow: it
// opens a checkout session for a pending booking and authenticates the
// checkout.session.completed webhook.
package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/iliyamo/room-reservation/internal/service/ports"
)

// Metadata keys written on every checkout session.
const (
	MetaRoomTypeID = "room_type_id"
	MetaStartDate  = "start_date"
	MetaEndDate    = "end_date"
	MetaGuestName  = "guest_name"
	MetaGuestCount = "guest_count"
	MetaBookingID  = "booking_id"
	MetaHoldID     = "hold_id"
)

// GatewayConfig holds the checkout presentation settings.
type GatewayConfig struct {
	WebBase    string        // site root used for success and cancel URLs
	Currency   string        // ISO currency, lower case
	Locale     string        // checkout page locale
	SessionTTL time.Duration // how long the checkout page stays payable
}

// StripeGateway implements ports.PaymentGateway on Stripe Checkout.
type StripeGateway struct {
	sc  *client.API
	cfg GatewayConfig
	now func() time.Time
}

var _ ports.PaymentGateway = (*StripeGateway)(nil)

// NewStripeGateway builds a gateway around a Stripe client.  Passing nil
// backends uses Stripe's production endpoints.
func NewStripeGateway(secretKey string, backends *stripe.Backends, cfg GatewayConfig) *StripeGateway {
	if cfg.Currency == "" {
		cfg.Currency = "try"
	}
	if cfg.Locale == "" {
		cfg.Locale = "tr"
	}
	if cfg.SessionTTL < 30*time.Minute {
		cfg.SessionTTL = 30 * time.Minute
	}
	cfg.WebBase = strings.TrimRight(cfg.WebBase, "/")
	return &StripeGateway{sc: client.New(secretKey, backends), cfg: cfg, now: time.Now}
}

// CreateSession opens a one-line-item checkout session priced at the
// booking total.
func (g *StripeGateway) CreateSession(ctx context.Context, req ports.CheckoutRequest) (ports.CheckoutSession, error) {
	b, rt := req.Booking, req.RoomType
	nights := b.Range.Nights()

	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:               stripe.String(g.cfg.WebBase + "/thanks.html?status=success"),
		CancelURL:                stripe.String(g.cfg.WebBase + "/booking.html?status=cancelled"),
		CustomerEmail:            stripe.String(b.GuestEmail),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		Locale:                   stripe.String(g.cfg.Locale),
		ClientReferenceID:        stripe.String(strconv.FormatUint(b.ID, 10)),
		// one extra minute so the request never lands under Stripe's 30 minute floor
		ExpiresAt: stripe.Int64(g.now().Add(g.cfg.SessionTTL + time.Minute).Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.cfg.Currency),
					UnitAmount: stripe.Int64(b.AmountTotal),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(fmt.Sprintf("%s — %d gece", rt.Name, nights)),
						Description: stripe.String(fmt.Sprintf("Tarih: %s → %s", b.Range.StartString(), b.Range.EndString())),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetaRoomTypeID, strconv.FormatUint(rt.ID, 10))
	params.AddMetadata(MetaStartDate, b.Range.StartString())
	params.AddMetadata(MetaEndDate, b.Range.EndString())
	params.AddMetadata(MetaGuestName, b.GuestName)
	params.AddMetadata(MetaGuestCount, strconv.Itoa(b.GuestCount))
	params.AddMetadata(MetaBookingID, strconv.FormatUint(b.ID, 10))
	if b.HoldID != nil {
		params.AddMetadata(MetaHoldID, strconv.FormatUint(*b.HoldID, 10))
	}

	s, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return ports.CheckoutSession{}, fmt.Errorf("stripe checkout session: %w", err)
	}
	return ports.CheckoutSession{Reference: s.ID, RedirectURL: s.URL}, nil
}

// ExpireSession closes an open checkout session so it can no longer be
// paid.
func (g *StripeGateway) ExpireSession(ctx context.Context, reference string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := g.sc.CheckoutSessions.Expire(reference, params); err != nil {
		return fmt.Errorf("stripe expire session %s: %w", reference, err)
	}
	return nil
}
