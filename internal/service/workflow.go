package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/service/ports"
)

// GuestInfo is the contact data stored on a booking.
type GuestInfo struct {
	Name  string
	Email string
	Count int
}

// ReservationRequest starts the HeldPendingPayment state for one unit.
type ReservationRequest struct {
	RoomTypeSlug string
	Range        model.DateRange
	Guest        GuestInfo
}

// ReservationResult tells the caller where to send the guest to pay.
type ReservationResult struct {
	BookingID               uint64
	PaymentRedirectURL      string
	PaymentSessionReference string
	AmountTotal             int64
	HoldExpiresAt           time.Time
}

// ConfirmResult describes what a confirmation did.  Found is false when no
// booking carries the reference; Changed is true only for the call that
// moved the booking from pending to paid.
type ConfirmResult struct {
	Found         bool
	Changed       bool
	BookingID     uint64
	Status        string
	HoldsReleased int64
}

// ReservationWorkflow drives a booking through
// Quoted -> HeldPendingPayment -> Confirmed, with Abandoned reached when the
// hold lapses.  No store lock is held while the payment gateway is called.
type ReservationWorkflow struct {
	store       ports.InventoryStore
	holds       *HoldManager
	gateway     ports.PaymentGateway
	publisher   ports.EventPublisher
	log         *zap.Logger
	now         Clock
	compTimeout time.Duration
}

// NewReservationWorkflow wires the workflow.  publisher may be nil, in which
// case confirmations are not announced.
func NewReservationWorkflow(store ports.InventoryStore, holds *HoldManager, gateway ports.PaymentGateway, publisher ports.EventPublisher, log *zap.Logger, now Clock) *ReservationWorkflow {
	if store == nil || holds == nil || gateway == nil {
		panic("nil dependency passed to NewReservationWorkflow")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReservationWorkflow{
		store:       store,
		holds:       holds,
		gateway:     gateway,
		publisher:   publisher,
		log:         log,
		now:         now.orDefault(),
		compTimeout: 10 * time.Second,
	}
}

// BeginReservation rechecks capacity under the room type lock, writes a hold
// and a pending booking, then asks the payment gateway for a session.  Any
// failure after the rows were written deletes them again before returning
// model.ErrDownstreamUnavailable.
func (w *ReservationWorkflow) BeginReservation(ctx context.Context, req ReservationRequest) (ReservationResult, error) {
	if err := req.Range.Validate(); err != nil {
		return ReservationResult{}, err
	}
	rt, err := w.store.GetActiveRoomTypeBySlug(ctx, strings.TrimSpace(req.RoomTypeSlug))
	if err != nil {
		if errors.Is(err, model.ErrRoomTypeNotFound) {
			return ReservationResult{}, err
		}
		return ReservationResult{}, fmt.Errorf("%w: lookup room type: %w", model.ErrDownstreamUnavailable, err)
	}
	guests := req.Guest.Count
	if guests == 0 {
		guests = 1
	}
	if guests < 0 || (rt.MaxGuests > 0 && guests > rt.MaxGuests) {
		return ReservationResult{}, model.ErrInvalidGuestCount
	}

	var (
		booking model.Booking
		hold    model.Hold
	)
	err = w.store.WithRoomTypeLock(ctx, rt.ID, func(tx ports.InventoryWriter, locked model.RoomType) error {
		h, err := w.holds.createLocked(ctx, tx, locked, req.Range)
		if err != nil {
			return err
		}
		hold = h
		booking = model.Booking{
			RoomTypeID:              locked.ID,
			HoldID:                  &h.ID,
			Range:                   req.Range,
			GuestName:               strings.TrimSpace(req.Guest.Name),
			GuestEmail:              strings.TrimSpace(req.Guest.Email),
			GuestCount:              guests,
			Status:                  model.BookingPending,
			AmountTotal:             locked.PricePerNight * int64(req.Range.Nights()),
			PaymentSessionReference: model.PendingReferencePrefix + uuid.NewString(),
			CreatedAt:               h.CreatedAt,
		}
		rt = locked
		return tx.InsertBooking(ctx, &booking)
	})
	if err != nil {
		if errors.Is(err, model.ErrCapacityExceeded) || errors.Is(err, model.ErrRoomTypeNotFound) {
			return ReservationResult{}, err
		}
		return ReservationResult{}, fmt.Errorf("%w: reserve capacity: %w", model.ErrDownstreamUnavailable, err)
	}

	session, err := w.gateway.CreateSession(ctx, ports.CheckoutRequest{Booking: booking, RoomType: rt})
	if err != nil {
		w.log.Warn("payment session failed, rolling back reservation",
			zap.Uint64("booking_id", booking.ID), zap.Uint64("hold_id", hold.ID), zap.Error(err))
		return ReservationResult{}, w.rollback(ctx, booking, "", fmt.Errorf("%w: create payment session: %w", model.ErrDownstreamUnavailable, err))
	}

	err = w.store.InTx(ctx, func(tx ports.InventoryWriter) error {
		return tx.SetPaymentReference(ctx, booking.ID, session.Reference)
	})
	if err != nil {
		w.log.Warn("storing payment reference failed, rolling back reservation",
			zap.Uint64("booking_id", booking.ID), zap.String("payment_ref", session.Reference), zap.Error(err))
		return ReservationResult{}, w.rollback(ctx, booking, session.Reference, fmt.Errorf("%w: store payment reference: %w", model.ErrDownstreamUnavailable, err))
	}

	w.log.Info("reservation held pending payment",
		zap.Uint64("booking_id", booking.ID),
		zap.Uint64("hold_id", hold.ID),
		zap.String("room_type", rt.Slug),
		zap.String("start", req.Range.StartString()),
		zap.String("end", req.Range.EndString()),
		zap.String("payment_ref", session.Reference),
	)
	return ReservationResult{
		BookingID:               booking.ID,
		PaymentRedirectURL:      session.RedirectURL,
		PaymentSessionReference: session.Reference,
		AmountTotal:             booking.AmountTotal,
		HoldExpiresAt:           hold.ExpiresAt,
	}, nil
}

// rollback deletes the hold and booking of a failed attempt.  It runs on a
// context detached from the caller so a disconnected client cannot leave
// the rows behind.  cause is returned, joined with any rollback failure.
func (w *ReservationWorkflow) rollback(ctx context.Context, b model.Booking, sessionRef string, cause error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.compTimeout)
	defer cancel()

	if sessionRef != "" {
		if err := w.gateway.ExpireSession(cctx, sessionRef); err != nil {
			w.log.Warn("expire payment session failed", zap.String("payment_ref", sessionRef), zap.Error(err))
		}
	}
	err := w.store.InTx(cctx, func(tx ports.InventoryWriter) error {
		if b.HoldID != nil {
			if _, err := tx.DeleteHold(cctx, *b.HoldID); err != nil {
				return err
			}
		}
		return tx.DeleteBooking(cctx, b.ID)
	})
	if err != nil {
		w.log.Error("reservation rollback failed; hold will lapse on expiry",
			zap.Uint64("booking_id", b.ID), zap.Error(err))
		return errors.Join(cause, fmt.Errorf("rollback: %w", err))
	}
	return cause
}

// ConfirmPayment promotes the booking carrying ref to paid and releases its
// hold.  Repeated calls are no-ops.  An unknown reference is logged and
// reported through ConfirmResult.Found, never as an error.
func (w *ReservationWorkflow) ConfirmPayment(ctx context.Context, ref string) (ConfirmResult, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		w.log.Warn("payment confirmation without session reference")
		return ConfirmResult{}, nil
	}
	now := w.now().UTC()

	var (
		res     ConfirmResult
		booking model.Booking
	)
	err := w.store.InTx(ctx, func(tx ports.InventoryWriter) error {
		changed, err := tx.MarkPaid(ctx, ref, now)
		if err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}
		b, err := tx.GetBookingByReference(ctx, ref)
		if errors.Is(err, model.ErrBookingNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		booking = b
		res = ConfirmResult{Found: true, Changed: changed, BookingID: b.ID, Status: b.Status}
		if b.Status != model.BookingPaid {
			return nil
		}
		res.HoldsReleased, err = w.holds.releaseFor(ctx, tx, b)
		if err != nil {
			return fmt.Errorf("release hold: %w", err)
		}
		return nil
	})
	if err != nil {
		return ConfirmResult{}, err
	}

	switch {
	case !res.Found:
		w.log.Warn("payment confirmed for unknown session reference", zap.String("payment_ref", ref))
	case res.Status == model.BookingCancelled:
		w.log.Error("payment confirmed for cancelled booking",
			zap.Uint64("booking_id", res.BookingID), zap.String("payment_ref", ref))
	case res.Changed:
		if now.After(booking.CreatedAt.Add(w.holds.TTL())) {
			w.log.Warn("payment confirmed after hold expiry",
				zap.Uint64("booking_id", booking.ID), zap.Time("created_at", booking.CreatedAt))
		}
		w.log.Info("booking confirmed",
			zap.Uint64("booking_id", booking.ID), zap.String("payment_ref", ref), zap.Int64("holds_released", res.HoldsReleased))
		w.publish(ctx, booking)
	default:
		w.log.Debug("duplicate payment confirmation", zap.Uint64("booking_id", res.BookingID))
	}
	return res, nil
}

func (w *ReservationWorkflow) publish(ctx context.Context, b model.Booking) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishBookingConfirmed(ctx, b); err != nil {
		w.log.Warn("publish booking.confirmed failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}

// CancelPending cancels a pending booking, releases its hold and expires
// its payment session.  Paid and cancelled bookings yield
// model.ErrBookingNotPending.
func (w *ReservationWorkflow) CancelPending(ctx context.Context, id uint64) (model.Booking, error) {
	now := w.now().UTC()
	var b model.Booking
	err := w.store.InTx(ctx, func(tx ports.InventoryWriter) error {
		changed, err := tx.CancelPending(ctx, id, now)
		if err != nil {
			return err
		}
		b, err = tx.GetBookingByID(ctx, id)
		if err != nil {
			return err
		}
		if !changed {
			return model.ErrBookingNotPending
		}
		_, err = w.holds.releaseFor(ctx, tx, b)
		return err
	})
	if err != nil {
		return model.Booking{}, err
	}
	if b.HasProviderReference() {
		if err := w.gateway.ExpireSession(ctx, b.PaymentSessionReference); err != nil {
			w.log.Warn("expire payment session failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
		}
	}
	w.log.Info("booking cancelled", zap.Uint64("booking_id", b.ID))
	return b, nil
}

// GetBooking loads one booking.
func (w *ReservationWorkflow) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	var b model.Booking
	err := w.store.ReadSnapshot(ctx, func(q ports.InventoryReader) error {
		var err error
		b, err = q.GetBookingByID(ctx, id)
		return err
	})
	return b, err
}

// ListBookings returns bookings newest first.
func (w *ReservationWorkflow) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	return w.store.ListBookings(ctx, f)
}
