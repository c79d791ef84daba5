package service

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// fakeStops serves stop sequences from memory and counts loads.
type fakeStops struct {
	mu     sync.Mutex
	routes map[uint64]model.StopSequence
	err    map[uint64]error
	loads  int
}

func (f *fakeStops) StopsOf(_ context.Context, routeID uint64) (model.StopSequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if err := f.err[routeID]; err != nil {
		return nil, err
	}
	seq, ok := f.routes[routeID]
	if !ok {
		return nil, repository.ErrRouteNotFound
	}
	return seq, nil
}

// memStore is an in-memory ledger store.  InTx holds a store-wide mutex
// for the whole transaction, which is what the trip row lock gives the
// MySQL store for a single trip, and restores a snapshot on error.
type memStore struct {
	mu       sync.Mutex
	trips    map[uint64]repository.TripLock
	bookings map[uint64]model.Booking
	payments map[uint64]model.Payment
	nextID   uint64
	failures []error
	txCount  int
}

func newMemStore() *memStore {
	return &memStore{
		trips:    map[uint64]repository.TripLock{},
		bookings: map[uint64]model.Booking{},
		payments: map[uint64]model.Payment{},
	}
}

func (s *memStore) InTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}
	bookings := make(map[uint64]model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		bookings[k] = v
	}
	payments := make(map[uint64]model.Payment, len(s.payments))
	for k, v := range s.payments {
		payments[k] = v
	}
	nextID := s.nextID
	if err := fn(memTx{s}); err != nil {
		s.bookings, s.payments, s.nextID = bookings, payments, nextID
		return err
	}
	return nil
}

func (s *memStore) RouteOfTrip(_ context.Context, tripID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return 0, repository.ErrTripNotFound
	}
	return t.RouteID, nil
}

func (s *memStore) active(tripID uint64) int {
	n := 0
	for _, b := range s.bookings {
		if b.TripID == tripID && b.Active() {
			n++
		}
	}
	return n
}

// Capacity lets memStore double as the availability reader.
func (s *memStore) Capacity(_ context.Context, tripID uint64) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return 0, 0, repository.ErrTripNotFound
	}
	return t.SeatCount, s.active(tripID), nil
}

type memTx struct{ s *memStore }

func (t memTx) LockTrip(_ context.Context, tripID uint64) (*repository.TripLock, error) {
	tl, ok := t.s.trips[tripID]
	if !ok {
		return nil, repository.ErrTripNotFound
	}
	return &tl, nil
}

func (t memTx) CountActiveBookings(_ context.Context, tripID uint64) (int, error) {
	return t.s.active(tripID), nil
}

func (t memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	t.s.nextID++
	b.ID = t.s.nextID
	t.s.bookings[b.ID] = *b
	return nil
}

func (t memTx) LockBooking(_ context.Context, id uint64) (*model.Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (t memTx) SetBookingStatus(_ context.Context, id uint64, status string, at time.Time) error {
	b := t.s.bookings[id]
	b.Status, b.UpdatedAt = status, at
	t.s.bookings[id] = b
	return nil
}

func (t memTx) InsertPayment(_ context.Context, p *model.Payment) error {
	t.s.nextID++
	p.ID = t.s.nextID
	t.s.payments[p.ID] = *p
	return nil
}

func (t memTx) LockPayment(_ context.Context, id uint64) (*model.Payment, error) {
	p, ok := t.s.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return &p, nil
}

func (t memTx) SetPaymentStatus(_ context.Context, id uint64, status string, paidAt *time.Time) error {
	p := t.s.payments[id]
	p.Status, p.PaidAt = status, paidAt
	t.s.payments[id] = p
	return nil
}

// fakeReader serves booking details from a fixed map.
type fakeReader struct {
	details map[uint64]repository.BookingDetail
}

func (r fakeReader) ListByUser(_ context.Context, userID uint64) ([]repository.BookingDetail, error) {
	out := []repository.BookingDetail{}
	for _, d := range r.details {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r fakeReader) GetDetail(_ context.Context, id uint64) (*repository.BookingDetail, error) {
	d, ok := r.details[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &d, nil
}

// recordingPublisher keeps published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func station(id uint64, name string, lat, lng float64) model.Station {
	return model.Station{ID: id, Name: name, Latitude: lat, Longitude: lng}
}

func stop(id uint64, name string, lat, lng float64, order int, arr, dep string) model.Stop {
	return model.Stop{StationID: id, StationName: name, Latitude: lat, Longitude: lng, Order: order,
		ArrivalTime: arr, DepartureTime: dep}
}
