package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/payment"
	"github.com/iliyamo/room-reservation/internal/service"
)

const maxWebhookBody = 64 << 10

// EventVerifier authenticates a provider callback.
type EventVerifier interface {
	Parse(payload []byte, sigHeader string) (*payment.Confirmation, string, error)
}

// PaymentConfirmer promotes the booking behind a payment session to paid.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, ref string) (service.ConfirmResult, error)
}

// Deduper remembers processed provider event ids.
type Deduper interface {
	Key(source, id string) string
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type WebhookHandler struct {
	verifier  EventVerifier
	confirmer PaymentConfirmer
	dedupe    Deduper
	log       *zap.Logger
}

// NewWebhookHandler builds the Stripe callback handler.  dedupe may be nil,
// in which case repeated deliveries rely on the confirmation being
// idempotent.
func NewWebhookHandler(verifier EventVerifier, confirmer PaymentConfirmer, dedupe Deduper, log *zap.Logger) *WebhookHandler {
	if verifier == nil || confirmer == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookHandler{verifier: verifier, confirmer: confirmer, dedupe: dedupe, log: log}
}

// Stripe handles POST /api/stripe-webhook.  Unauthenticated payloads are
// rejected with 400 before anything is read from them.  A store failure
// returns 500 so the provider delivers the event again.
func (h *WebhookHandler) Stripe(c echo.Context) error {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	conf, eventID, err := h.verifier.Parse(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrSignatureInvalid) {
			h.log.Warn("webhook signature rejected", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Webhook Error: invalid signature"})
		}
		h.log.Warn("webhook payload rejected", zap.String("event_id", eventID), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Webhook Error: malformed event"})
	}
	if conf == nil {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	ctx := c.Request().Context()
	key := ""
	if h.dedupe != nil && eventID != "" {
		key = h.dedupe.Key("stripe", eventID)
		seen, err := h.dedupe.Seen(ctx, key)
		switch {
		case err != nil:
			h.log.Warn("idempotency check failed", zap.String("event_id", eventID), zap.Error(err))
			key = ""
		case seen:
			h.log.Debug("duplicate webhook delivery", zap.String("event_id", eventID))
			return c.JSON(http.StatusOK, echo.Map{"received": true, "duplicate": true})
		}
	}

	if _, err := h.confirmer.ConfirmPayment(ctx, conf.SessionReference); err != nil {
		h.log.Error("confirm payment failed",
			zap.String("event_id", eventID), zap.String("payment_ref", conf.SessionReference), zap.Error(err))
		if key != "" {
			if ferr := h.dedupe.Forget(context.WithoutCancel(ctx), key); ferr != nil {
				h.log.Warn("idempotency release failed", zap.String("event_id", eventID), zap.Error(ferr))
			}
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation failed", "retryable": true})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
