package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/service/ports"
)

// memStore is an in-memory ports.InventoryStore.  A mutex per room type
// stands in for SELECT ... FOR UPDATE and failed transactions are undone
// from a journal.
type memStore struct {
	mu        sync.Mutex
	roomLocks map[uint64]*sync.Mutex
	roomTypes map[uint64]model.RoomType
	holds     map[uint64]model.Hold
	bookings  map[uint64]model.Booking
	nextID    uint64

	// afterCount runs between the capacity count and the insert.
	afterCount func()
	// failSetReference makes SetPaymentReference fail.
	failSetReference error
}

var _ ports.InventoryStore = (*memStore)(nil)

func newMemStore(types ...model.RoomType) *memStore {
	s := &memStore{
		roomLocks: map[uint64]*sync.Mutex{},
		roomTypes: map[uint64]model.RoomType{},
		holds:     map[uint64]model.Hold{},
		bookings:  map[uint64]model.Booking{},
	}
	for _, rt := range types {
		s.roomTypes[rt.ID] = rt
	}
	return s
}

func (s *memStore) addHold(h model.Hold) model.Hold {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	h.ID = s.nextID
	s.holds[h.ID] = h
	return h
}

func (s *memStore) addBooking(b model.Booking) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID = s.nextID
	s.bookings[b.ID] = b
	return b
}

func (s *memStore) holdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.holds)
}

func (s *memStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *memStore) booking(id uint64) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

func (s *memStore) roomLock(id uint64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.roomLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.roomLocks[id] = l
	}
	return l
}

func (s *memStore) ReadSnapshot(ctx context.Context, fn func(ports.InventoryReader) error) error {
	s.mu.Lock()
	snap := &memStore{
		roomTypes: make(map[uint64]model.RoomType, len(s.roomTypes)),
		holds:     make(map[uint64]model.Hold, len(s.holds)),
		bookings:  make(map[uint64]model.Booking, len(s.bookings)),
	}
	for k, v := range s.roomTypes {
		snap.roomTypes[k] = v
	}
	for k, v := range s.holds {
		snap.holds[k] = v
	}
	for k, v := range s.bookings {
		snap.bookings[k] = v
	}
	s.mu.Unlock()
	return fn(&memTx{s: snap})
}

func (s *memStore) WithRoomTypeLock(ctx context.Context, roomTypeID uint64, fn func(ports.InventoryWriter, model.RoomType) error) error {
	l := s.roomLock(roomTypeID)
	l.Lock()
	defer l.Unlock()
	s.mu.Lock()
	rt, ok := s.roomTypes[roomTypeID]
	s.mu.Unlock()
	if !ok || !rt.IsActive {
		return model.ErrRoomTypeNotFound
	}
	return s.runTx(func(tx *memTx) error { return fn(tx, rt) })
}

func (s *memStore) InTx(ctx context.Context, fn func(ports.InventoryWriter) error) error {
	return s.runTx(func(tx *memTx) error { return fn(tx) })
}

func (s *memStore) runTx(fn func(*memTx) error) error {
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) GetActiveRoomTypeBySlug(ctx context.Context, slug string) (model.RoomType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.roomTypes {
		if rt.Slug == slug && rt.IsActive {
			return rt, nil
		}
	}
	return model.RoomType{}, model.ErrRoomTypeNotFound
}

func (s *memStore) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Booking{}
	for _, b := range s.bookings {
		if f.Status == "" || b.Status == f.Status {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) PurgeExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, h := range s.holds {
		if !h.LiveAt(now) {
			delete(s.holds, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) CancelAbandoned(ctx context.Context, cutoff, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, b := range s.bookings {
		if b.Status != model.BookingPending || !b.CreatedAt.Before(cutoff) {
			continue
		}
		if b.HoldID != nil {
			if h, ok := s.holds[*b.HoldID]; ok && h.LiveAt(now) {
				continue
			}
		}
		b.Status = model.BookingCancelled
		t := now
		b.CancelledAt = &t
		s.bookings[id] = b
		n++
	}
	return n, nil
}

func (s *memStore) Ping(ctx context.Context) (int, error) { return 3, nil }

// memTx implements ports.InventoryWriter.  Each call locks the store
// briefly; writes record an undo step.
type memTx struct {
	s    *memStore
	undo []func()
}

func (t *memTx) lock() func() {
	if t.s.roomLocks == nil {
		// snapshot copy, not shared
		return func() {}
	}
	t.s.mu.Lock()
	return t.s.mu.Unlock
}

func (t *memTx) ListActiveRoomTypes(ctx context.Context) ([]model.RoomType, error) {
	defer t.lock()()
	out := []model.RoomType{}
	for _, rt := range t.s.roomTypes {
		if rt.IsActive {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) PaidUsage(ctx context.Context, r model.DateRange) (map[uint64]int, error) {
	defer t.lock()()
	out := map[uint64]int{}
	for _, b := range t.s.bookings {
		if b.Status == model.BookingPaid && b.Range.Overlaps(r) {
			out[b.RoomTypeID]++
		}
	}
	return out, nil
}

func (t *memTx) LiveHoldUsage(ctx context.Context, r model.DateRange, now time.Time) (map[uint64]int, error) {
	defer t.lock()()
	out := map[uint64]int{}
	for _, h := range t.s.holds {
		if h.LiveAt(now) && h.Range.Overlaps(r) {
			out[h.RoomTypeID]++
		}
	}
	return out, nil
}

func (t *memTx) CountUsedCapacity(ctx context.Context, roomTypeID uint64, r model.DateRange, now time.Time) (int, error) {
	paid, err := t.PaidUsage(ctx, r)
	if err != nil {
		return 0, err
	}
	held, err := t.LiveHoldUsage(ctx, r, now)
	if t.s.afterCount != nil {
		t.s.afterCount()
	}
	return paid[roomTypeID] + held[roomTypeID], err
}

func (t *memTx) GetBookingByID(ctx context.Context, id uint64) (model.Booking, error) {
	defer t.lock()()
	b, ok := t.s.bookings[id]
	if !ok {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, nil
}

func (t *memTx) GetBookingByReference(ctx context.Context, ref string) (model.Booking, error) {
	defer t.lock()()
	for _, b := range t.s.bookings {
		if b.PaymentSessionReference == ref {
			return b, nil
		}
	}
	return model.Booking{}, model.ErrBookingNotFound
}

func (t *memTx) InsertHold(ctx context.Context, h *model.Hold) error {
	defer t.lock()()
	t.s.nextID++
	h.ID = t.s.nextID
	t.s.holds[h.ID] = *h
	id := h.ID
	t.undo = append(t.undo, func() { delete(t.s.holds, id) })
	return nil
}

func (t *memTx) DeleteHold(ctx context.Context, id uint64) (int64, error) {
	defer t.lock()()
	h, ok := t.s.holds[id]
	if !ok {
		return 0, nil
	}
	delete(t.s.holds, id)
	t.undo = append(t.undo, func() { t.s.holds[id] = h })
	return 1, nil
}

func (t *memTx) DeleteHoldsMatching(ctx context.Context, roomTypeID uint64, r model.DateRange) (int64, error) {
	defer t.lock()()
	var n int64
	for id, h := range t.s.holds {
		if h.RoomTypeID == roomTypeID && h.Range.Equal(r) {
			delete(t.s.holds, id)
			t.undo = append(t.undo, func() { t.s.holds[id] = h })
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	defer t.lock()()
	t.s.nextID++
	b.ID = t.s.nextID
	t.s.bookings[b.ID] = *b
	id := b.ID
	t.undo = append(t.undo, func() { delete(t.s.bookings, id) })
	return nil
}

func (t *memTx) SetPaymentReference(ctx context.Context, bookingID uint64, ref string) error {
	if t.s.failSetReference != nil {
		return t.s.failSetReference
	}
	defer t.lock()()
	b, ok := t.s.bookings[bookingID]
	if !ok {
		return model.ErrBookingNotFound
	}
	prev := b
	b.PaymentSessionReference = ref
	t.s.bookings[bookingID] = b
	t.undo = append(t.undo, func() { t.s.bookings[bookingID] = prev })
	return nil
}

func (t *memTx) DeleteBooking(ctx context.Context, id uint64) error {
	defer t.lock()()
	b, ok := t.s.bookings[id]
	if !ok {
		return nil
	}
	delete(t.s.bookings, id)
	t.undo = append(t.undo, func() { t.s.bookings[id] = b })
	return nil
}

func (t *memTx) setStatus(match func(model.Booking) bool, status string, now time.Time) bool {
	for id, b := range t.s.bookings {
		if !match(b) || b.Status != model.BookingPending {
			continue
		}
		prev := b
		b.Status = status
		ts := now
		if status == model.BookingPaid {
			b.PaidAt = &ts
		} else {
			b.CancelledAt = &ts
		}
		t.s.bookings[id] = b
		t.undo = append(t.undo, func() { t.s.bookings[id] = prev })
		return true
	}
	return false
}

func (t *memTx) MarkPaid(ctx context.Context, ref string, now time.Time) (bool, error) {
	defer t.lock()()
	return t.setStatus(func(b model.Booking) bool { return b.PaymentSessionReference == ref }, model.BookingPaid, now), nil
}

func (t *memTx) CancelPending(ctx context.Context, id uint64, now time.Time) (bool, error) {
	defer t.lock()()
	return t.setStatus(func(b model.Booking) bool { return b.ID == id }, model.BookingCancelled, now), nil
}
