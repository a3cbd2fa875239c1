package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/service/ports"
)

type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	expired   []string
	requests  []ports.CheckoutRequest
	seq       int
}

func (g *fakeGateway) CreateSession(ctx context.Context, req ports.CheckoutRequest) (ports.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.createErr != nil {
		return ports.CheckoutSession{}, g.createErr
	}
	g.seq++
	ref := fmt.Sprintf("cs_test_%d", g.seq)
	return ports.CheckoutSession{Reference: ref, RedirectURL: "https://checkout.example/" + ref}, nil
}

func (g *fakeGateway) ExpireSession(ctx context.Context, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = append(g.expired, reference)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []model.Booking
}

func (p *fakePublisher) PublishBookingConfirmed(ctx context.Context, b model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, b)
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store     *memStore
	clock     *testClock
	gateway   *fakeGateway
	publisher *fakePublisher
	holds     *HoldManager
	calc      *AvailabilityCalculator
	workflow  *ReservationWorkflow
	rt        model.RoomType
}

func newFixture(t *testing.T, totalUnits int) *fixture {
	t.Helper()
	rt := model.RoomType{
		ID:            1,
		Name:          "Deluxe Double",
		Slug:          "deluxe-double",
		MaxGuests:     2,
		PricePerNight: 250000,
		TotalUnits:    totalUnits,
		IsActive:      true,
	}
	f := &fixture{
		store:     newMemStore(rt),
		clock:     &testClock{now: time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)},
		gateway:   &fakeGateway{},
		publisher: &fakePublisher{},
		rt:        rt,
	}
	f.holds = NewHoldManager(f.store, model.HoldTTL, f.clock.Now)
	f.calc = NewAvailabilityCalculator(f.store, f.clock.Now)
	f.workflow = NewReservationWorkflow(f.store, f.holds, f.gateway, f.publisher, zap.NewNop(), f.clock.Now)
	return f
}

func mustRange(t *testing.T, start, end string) model.DateRange {
	t.Helper()
	r, err := model.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func (f *fixture) request(r model.DateRange) ReservationRequest {
	return ReservationRequest{
		RoomTypeSlug: f.rt.Slug,
		Range:        r,
		Guest:        GuestInfo{Name: "Ayşe Yılmaz", Email: "ayse@example.com", Count: 2},
	}
}
