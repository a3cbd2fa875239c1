package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/payment"
	"github.com/iliyamo/room-reservation/internal/service"
)

type mockAvailability struct{ mock.Mock }

func (m *mockAvailability) GetAvailability(ctx context.Context, r model.DateRange) ([]model.RoomAvailability, error) {
	args := m.Called(ctx, r)
	rooms, _ := args.Get(0).([]model.RoomAvailability)
	return rooms, args.Error(1)
}

type mockStarter struct{ mock.Mock }

func (m *mockStarter) BeginReservation(ctx context.Context, req service.ReservationRequest) (service.ReservationResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(service.ReservationResult), args.Error(1)
}

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Parse(payload []byte, sig string) (*payment.Confirmation, string, error) {
	args := m.Called(payload, sig)
	conf, _ := args.Get(0).(*payment.Confirmation)
	return conf, args.String(1), args.Error(2)
}

type mockConfirmer struct{ mock.Mock }

func (m *mockConfirmer) ConfirmPayment(ctx context.Context, ref string) (service.ConfirmResult, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(service.ConfirmResult), args.Error(1)
}

// memDeduper claims keys in a map.
type memDeduper struct {
	keys    map[string]bool
	failGet bool
}

func newMemDeduper() *memDeduper { return &memDeduper{keys: map[string]bool{}} }

func (d *memDeduper) Key(source, id string) string { return source + ":" + id }

func (d *memDeduper) Seen(ctx context.Context, key string) (bool, error) {
	if d.failGet {
		return false, errors.New("redis down")
	}
	if d.keys[key] {
		return true, nil
	}
	d.keys[key] = true
	return false, nil
}

func (d *memDeduper) Forget(ctx context.Context, key string) error {
	delete(d.keys, key)
	return nil
}

type mockAdmin struct{ mock.Mock }

func (m *mockAdmin) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]model.Booking)
	return list, args.Error(1)
}

func (m *mockAdmin) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *mockAdmin) CancelPending(ctx context.Context, id uint64) (model.Booking, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Booking), args.Error(1)
}

type pingFunc func(ctx context.Context) (int, error)

func (f pingFunc) Ping(ctx context.Context) (int, error) { return f(ctx) }

func serve(t *testing.T, method, path, pattern string, h echo.HandlerFunc, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Add(method, pattern, h)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func mustRange(t *testing.T, start, end string) model.DateRange {
	t.Helper()
	r, err := model.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func TestAvailability_Get(t *testing.T) {
	svc := new(mockAvailability)
	r := mustRange(t, "2024-06-01", "2024-06-05")
	svc.On("GetAvailability", mock.Anything, r).Return([]model.RoomAvailability{
		{RoomTypeID: 1, Name: "Deluxe", Slug: "deluxe", TotalUnits: 3, RemainingUnits: 1, Available: true},
	}, nil)
	h := NewAvailabilityHandler(svc, nil)

	rec := serve(t, http.MethodGet, "/api/availability?start=2024-06-01&end=2024-06-05", "/api/availability", h.Get, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "2024-06-01", out["start"])
	assert.Equal(t, "2024-06-05", out["end"])
	rooms := out["rooms"].([]any)
	require.Len(t, rooms, 1)
	assert.Equal(t, float64(1), rooms[0].(map[string]any)["remaining_units"])
	svc.AssertExpectations(t)
}

func TestAvailability_BadInput(t *testing.T) {
	h := NewAvailabilityHandler(new(mockAvailability), nil)

	rec := serve(t, http.MethodGet, "/api/availability?start=2024-06-01", "/api/availability", h.Get, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing start or end", decode(t, rec)["error"])

	rec = serve(t, http.MethodGet, "/api/availability?start=2024-06-05&end=2024-06-05", "/api/availability", h.Get, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, http.MethodGet, "/api/availability?start=June&end=2024-06-05", "/api/availability", h.Get, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_Create(t *testing.T) {
	svc := new(mockStarter)
	svc.On("BeginReservation", mock.Anything, mock.MatchedBy(func(req service.ReservationRequest) bool {
		return req.RoomTypeSlug == "deluxe" && req.Range.Nights() == 2 && req.Guest.Email == "a@b.c" && req.Guest.Count == 2
	})).Return(service.ReservationResult{
		BookingID:               7,
		PaymentRedirectURL:      "https://checkout.example/cs_1",
		PaymentSessionReference: "cs_1",
	}, nil)
	h := NewCheckoutHandler(svc, nil)

	body := `{"room_type_slug":"deluxe","start_date":"2024-06-01","end_date":"2024-06-03","guest_count":2,"guest_name":"Ada","guest_email":" a@b.c "}`
	rec := serve(t, http.MethodPost, "/api/create-checkout-session", "/api/create-checkout-session", h.Create, body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "https://checkout.example/cs_1", out["payment_redirect_url"])
	assert.Equal(t, "cs_1", out["payment_session_reference"])
	svc.AssertExpectations(t)
}

func TestCheckout_ErrorMapping(t *testing.T) {
	valid := `{"room_type_slug":"deluxe","start_date":"2024-06-01","end_date":"2024-06-03","guest_email":"a@b.c"}`
	cases := []struct {
		name      string
		body      string
		err       error
		status    int
		retryable bool
	}{
		{name: "missing email", body: `{"room_type_slug":"deluxe","start_date":"2024-06-01","end_date":"2024-06-03"}`, status: http.StatusBadRequest},
		{name: "reversed dates", body: `{"room_type_slug":"deluxe","start_date":"2024-06-03","end_date":"2024-06-01","guest_email":"a@b.c"}`, status: http.StatusBadRequest},
		{name: "unknown room type", body: valid, err: model.ErrRoomTypeNotFound, status: http.StatusNotFound},
		{name: "too many guests", body: valid, err: model.ErrInvalidGuestCount, status: http.StatusBadRequest},
		{name: "sold out", body: valid, err: model.ErrCapacityExceeded, status: http.StatusConflict},
		{name: "payment down", body: valid, err: fmt.Errorf("%w: create payment session: boom", model.ErrDownstreamUnavailable), status: http.StatusInternalServerError, retryable: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockStarter)
			if tc.err != nil {
				svc.On("BeginReservation", mock.Anything, mock.Anything).Return(service.ReservationResult{}, tc.err)
			}
			h := NewCheckoutHandler(svc, nil)
			rec := serve(t, http.MethodPost, "/api/create-checkout-session", "/api/create-checkout-session", h.Create, tc.body, nil)
			assert.Equal(t, tc.status, rec.Code)
			out := decode(t, rec)
			assert.NotEmpty(t, out["error"])
			if tc.retryable {
				assert.Equal(t, true, out["retryable"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestWebhook_ConfirmsOncePerEvent(t *testing.T) {
	verifier := new(mockVerifier)
	verifier.On("Parse", []byte("{}"), "t=1,v1=sig").
		Return(&payment.Confirmation{EventID: "evt_1", SessionReference: "cs_1"}, "evt_1", nil)
	confirmer := new(mockConfirmer)
	confirmer.On("ConfirmPayment", mock.Anything, "cs_1").
		Return(service.ConfirmResult{Found: true, Changed: true, BookingID: 7, Status: model.BookingPaid}, nil).Once()
	h := NewWebhookHandler(verifier, confirmer, newMemDeduper(), nil)
	headers := map[string]string{"Stripe-Signature": "t=1,v1=sig"}

	rec := serve(t, http.MethodPost, "/api/stripe-webhook", "/api/stripe-webhook", h.Stripe, "{}", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["received"])

	rec = serve(t, http.MethodPost, "/api/stripe-webhook", "/api/stripe-webhook", h.Stripe, "{}", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["duplicate"])

	confirmer.AssertNumberOfCalls(t, "ConfirmPayment", 1)
}

func TestWebhook_InvalidSignatureNeverConfirms(t *testing.T) {
	verifier := new(mockVerifier)
	verifier.On("Parse", mock.Anything, mock.Anything).
		Return(nil, "", fmt.Errorf("%w: bad", payment.ErrSignatureInvalid))
	confirmer := new(mockConfirmer)
	h := NewWebhookHandler(verifier, confirmer, nil, nil)

	rec := serve(t, http.MethodPost, "/api/stripe-webhook", "/api/stripe-webhook", h.Stripe, "{}", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	confirmer.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything)
}

func TestWebhook_IgnoredEventTypeIsAcknowledged(t *testing.T) {
	verifier := new(mockVerifier)
	verifier.On("Parse", mock.Anything, mock.Anything).Return(nil, "evt_2", nil)
	confirmer := new(mockConfirmer)
	h := NewWebhookHandler(verifier, confirmer, newMemDeduper(), nil)

	rec := serve(t, http.MethodPost, "/api/stripe-webhook", "/api/stripe-webhook", h.Stripe, "{}", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	confirmer.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything)
}

func TestWebhook_StoreFailureAllowsRedelivery(t *testing.T) {
	verifier := new(mockVerifier)
	verifier.On("Parse", mock.Anything, mock.Anything).
		Return(&payment.Confirmation{EventID: "evt_3", SessionReference: "cs_3"}, "evt_3", nil)
	confirmer := new(mockConfirmer)
	confirmer.On("ConfirmPayment", mock.Anything, "cs_3").Return(service.ConfirmResult{}, errors.New("db down")).Once()
	confirmer.On("ConfirmPayment", mock.Anything, "cs_3").Return(service.ConfirmResult{Found: true, Changed: true}, nil).Once()
	dedupe := newMemDeduper()
	h := NewWebhookHandler(verifier, confirmer, dedupe, nil)

	rec := serve(t, http.MethodPost, "/api/stripe-webhook", "/api/stripe-webhook", h.Stripe, "{}", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, dedupe.keys)

	rec = serve(t, http.MethodPost, "/api/stripe-webhook", "/api/stripe-webhook", h.Stripe, "{}", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	confirmer.AssertExpectations(t)
}

func TestWebhook_DeduperOutageStillConfirms(t *testing.T) {
	verifier := new(mockVerifier)
	verifier.On("Parse", mock.Anything, mock.Anything).
		Return(&payment.Confirmation{EventID: "evt_4", SessionReference: "cs_4"}, "evt_4", nil)
	confirmer := new(mockConfirmer)
	confirmer.On("ConfirmPayment", mock.Anything, "cs_4").Return(service.ConfirmResult{Found: true}, nil)
	h := NewWebhookHandler(verifier, confirmer, &memDeduper{keys: map[string]bool{}, failGet: true}, nil)

	rec := serve(t, http.MethodPost, "/api/stripe-webhook", "/api/stripe-webhook", h.Stripe, "{}", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	confirmer.AssertExpectations(t)
}

func TestPing(t *testing.T) {
	rec := serve(t, http.MethodGet, "/api/ping", "/api/ping", Ping(pingFunc(func(context.Context) (int, error) { return 3, nil })), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, float64(3), out["tables"])

	rec = serve(t, http.MethodGet, "/api/ping", "/api/ping", Ping(pingFunc(func(context.Context) (int, error) { return 0, errors.New("down") })), "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, decode(t, rec)["ok"])
}

func TestAdmin_ListAndGet(t *testing.T) {
	created := time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC)
	b := model.Booking{ID: 7, RoomTypeID: 1, Range: mustRange(t, "2024-06-01", "2024-06-03"), Status: model.BookingPending, CreatedAt: created}
	svc := new(mockAdmin)
	svc.On("ListBookings", mock.Anything, model.BookingFilter{Status: "pending", Limit: 10}).Return([]model.Booking{b}, nil)
	svc.On("GetBooking", mock.Anything, uint64(7)).Return(b, nil)
	svc.On("GetBooking", mock.Anything, uint64(8)).Return(model.Booking{}, model.ErrBookingNotFound)
	h := NewAdminHandler(svc, nil)

	rec := serve(t, http.MethodGet, "/v1/admin/bookings?status=PENDING&limit=10", "/v1/admin/bookings", h.ListBookings, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, float64(1), out["count"])
	item := out["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "2024-06-01", item["start_date"])
	assert.Equal(t, "2024-06-03", item["end_date"])
	assert.Equal(t, "pending", item["status"])

	rec = serve(t, http.MethodGet, "/v1/admin/bookings?status=bogus", "/v1/admin/bookings", h.ListBookings, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, http.MethodGet, "/v1/admin/bookings/7", "/v1/admin/bookings/:id", h.GetBooking, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(t, http.MethodGet, "/v1/admin/bookings/8", "/v1/admin/bookings/:id", h.GetBooking, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(t, http.MethodGet, "/v1/admin/bookings/x", "/v1/admin/bookings/:id", h.GetBooking, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_Cancel(t *testing.T) {
	svc := new(mockAdmin)
	svc.On("CancelPending", mock.Anything, uint64(7)).
		Return(model.Booking{ID: 7, Status: model.BookingCancelled, Range: mustRange(t, "2024-06-01", "2024-06-03")}, nil)
	svc.On("CancelPending", mock.Anything, uint64(9)).Return(model.Booking{}, model.ErrBookingNotPending)
	h := NewAdminHandler(svc, nil)

	rec := serve(t, http.MethodPost, "/v1/admin/bookings/7/cancel", "/v1/admin/bookings/:id/cancel", h.CancelBooking, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode(t, rec)["status"])

	rec = serve(t, http.MethodPost, "/v1/admin/bookings/9/cancel", "/v1/admin/bookings/:id/cancel", h.CancelBooking, "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
