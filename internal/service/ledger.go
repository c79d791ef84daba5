package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/utils"
)

// BookingStore runs fn inside one store transaction, committing when fn
// returns nil and rolling back otherwise.  RouteOfTrip is a plain read
// used before any lock is taken.
type BookingStore interface {
	InTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error
	RouteOfTrip(ctx context.Context, tripID uint64) (uint64, error)
}

// BookingReader serves booking history and ticket details.
type BookingReader interface {
	ListByUser(ctx context.Context, userID uint64) ([]repository.BookingDetail, error)
	GetDetail(ctx context.Context, bookingID uint64) (*repository.BookingDetail, error)
}

// EventPublisher delivers booking events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Caller identifies who performs a ledger operation.
type Caller struct {
	UserID uint64
	Role   string
}

func (c Caller) isAdmin() bool { return c.Role == model.RoleAdmin }

// CreateBookingInput is the body of a booking request.
type CreateBookingInput struct {
	TripID           uint64 `json:"trip_id"`
	PickupStationID  uint64 `json:"pickup_station_id"`
	DropoffStationID uint64 `json:"dropoff_station_id"`
}

// Ledger creates and transitions bookings.  Every write runs in a store
// transaction that holds the trip (or booking) row lock, so the number
// of pending and paid bookings of a trip never exceeds its seat count.
type Ledger struct {
	store    BookingStore
	reader   BookingReader
	stops    *StopGraph
	events   EventPublisher
	attempts int
	now      func() time.Time
}

// NewLedger wires a Ledger.  events may be nil.  attempts bounds how
// often a transaction that lost a lock race is replayed.
func NewLedger(store BookingStore, reader BookingReader, stops *StopGraph, events EventPublisher, attempts int) *Ledger {
	if attempts < 1 {
		attempts = 1
	}
	return &Ledger{store: store, reader: reader, stops: stops, events: events, attempts: attempts, now: time.Now}
}

// WithClock replaces the clock used for timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// runTx replays fn on deadlocks and lock wait timeouts.  Both roll the
// whole transaction back server side, so a replay starts clean.
func (l *Ledger) runTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	var err error
	for attempt := 1; attempt <= l.attempts; attempt++ {
		err = l.store.InTx(ctx, fn)
		if err == nil || !repository.IsLockConflict(err) || attempt == l.attempts {
			return err
		}
		bookingTxRetries.Inc()
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		}
	}
	return err
}

// ledgerError maps store errors escaping a transaction to service
// errors.  Service errors raised inside the transaction pass through.
func ledgerError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsNotFound(err), IsValidation(err), IsConflict(err), IsForbidden(err), IsInternal(err):
		return err
	case errors.Is(err, repository.ErrTripNotFound):
		return NotFoundError{Resource: "trip", Err: err}
	case errors.Is(err, repository.ErrBookingNotFound):
		return NotFoundError{Resource: "booking", Err: err}
	case errors.Is(err, repository.ErrPaymentNotFound):
		return NotFoundError{Resource: "payment", Err: err}
	default:
		return storeError(op, err)
	}
}

// Create books one seat on a trip for userID.  Reachability of the
// pickup/dropoff pair is resolved first, outside the transaction, so the
// trip row lock is never held while stops are loaded.  The trip row is
// then locked, active bookings are counted and the pending booking is
// inserted in the same transaction; ErrSoldOut is returned (wrapped in a
// ConflictError) when the trip is full.
func (l *Ledger) Create(ctx context.Context, userID uint64, in CreateBookingInput) (*model.Booking, error) {
	switch {
	case userID == 0:
		return nil, ValidationError{Field: "user_id", Msg: "must be positive"}
	case in.TripID == 0:
		return nil, ValidationError{Field: "trip_id", Msg: "must be positive"}
	case in.PickupStationID == 0:
		return nil, ValidationError{Field: "pickup_station_id", Msg: "must be positive"}
	case in.DropoffStationID == 0:
		return nil, ValidationError{Field: "dropoff_station_id", Msg: "must be positive"}
	case in.PickupStationID == in.DropoffStationID:
		return nil, ValidationError{Field: "dropoff_station_id", Msg: "must differ from pickup_station_id"}
	}

	routeID, err := l.store.RouteOfTrip(ctx, in.TripID)
	if err != nil {
		return nil, ledgerError("create booking", err)
	}
	ok, err := l.stops.IsReachable(ctx, routeID, in.PickupStationID, in.DropoffStationID)
	if err != nil {
		return nil, storeError("load route stops", err)
	}
	if !ok {
		return nil, ValidationError{Field: "dropoff_station_id", Msg: "route does not reach dropoff after pickup"}
	}

	var booking *model.Booking
	err = l.runTx(ctx, func(tx repository.LedgerTx) error {
		trip, err := tx.LockTrip(ctx, in.TripID)
		if err != nil {
			return err
		}
		if trip.Status != model.TripScheduled {
			return ConflictError{Resource: "trip", Msg: "trip is " + trip.Status}
		}
		if trip.RouteID != routeID {
			return ConflictError{Resource: "trip", Msg: "trip route changed, retry"}
		}
		active, err := tx.CountActiveBookings(ctx, in.TripID)
		if err != nil {
			return err
		}
		if active >= trip.SeatCount {
			return ConflictError{Resource: "trip", Msg: "no seats left", Err: ErrSoldOut}
		}
		now := l.now().UTC()
		b := &model.Booking{
			UserID:           userID,
			TripID:           in.TripID,
			PickupStationID:  in.PickupStationID,
			DropoffStationID: in.DropoffStationID,
			Status:           model.BookingPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrSoldOut) {
			outcome = "sold_out"
		}
		bookingOutcomes.WithLabelValues(outcome).Inc()
		return nil, ledgerError("create booking", err)
	}
	bookingOutcomes.WithLabelValues("created").Inc()
	bookingTransitions.WithLabelValues(model.BookingPending).Inc()
	l.publish(ctx, queue.EventBookingCreated, booking, 0)
	return booking, nil
}

// Cancel releases the seat of a booking.  Only the owner or an admin may
// cancel.  Canceling an already canceled booking succeeds without change.
func (l *Ledger) Cancel(ctx context.Context, caller Caller, bookingID uint64) (*model.Booking, error) {
	if bookingID == 0 {
		return nil, ValidationError{Field: "booking_id", Msg: "must be positive"}
	}
	var (
		booking *model.Booking
		changed bool
	)
	err := l.runTx(ctx, func(tx repository.LedgerTx) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != caller.UserID && !caller.isAdmin() {
			return ForbiddenError{Msg: "booking belongs to another user"}
		}
		switch b.Status {
		case model.BookingCanceled:
			booking = b
			return nil
		case model.BookingRefunded:
			return ConflictError{Resource: "booking", Msg: "booking was refunded"}
		}
		now := l.now().UTC()
		if err := tx.SetBookingStatus(ctx, b.ID, model.BookingCanceled, now); err != nil {
			return err
		}
		b.Status = model.BookingCanceled
		b.UpdatedAt = now
		booking, changed = b, true
		return nil
	})
	if err != nil {
		return nil, ledgerError("cancel booking", err)
	}
	if changed {
		bookingTransitions.WithLabelValues(model.BookingCanceled).Inc()
		l.publish(ctx, queue.EventBookingCanceled, booking, 0)
	}
	return booking, nil
}

// InitiatePayment opens a pending payment for the caller's pending
// booking.  amount must equal the trip price.
func (l *Ledger) InitiatePayment(ctx context.Context, caller Caller, bookingID uint64, amount int64, method string) (*model.Payment, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	switch {
	case bookingID == 0:
		return nil, ValidationError{Field: "booking_id", Msg: "must be positive"}
	case amount <= 0:
		return nil, ValidationError{Field: "amount", Msg: "must be positive"}
	case method == "":
		return nil, ValidationError{Field: "method", Msg: "is required"}
	}
	var payment *model.Payment
	err := l.runTx(ctx, func(tx repository.LedgerTx) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != caller.UserID {
			return ForbiddenError{Msg: "booking belongs to another user"}
		}
		switch b.Status {
		case model.BookingPending:
		case model.BookingPaid:
			return ConflictError{Resource: "booking", Msg: "booking is already paid"}
		default:
			return ConflictError{Resource: "booking", Msg: "booking is " + b.Status}
		}
		trip, err := tx.LockTrip(ctx, b.TripID)
		if err != nil {
			return err
		}
		if amount != trip.Price {
			return ValidationError{Field: "amount", Msg: fmt.Sprintf("must equal trip price %d", trip.Price)}
		}
		p := &model.Payment{BookingID: b.ID, Amount: amount, Method: method, Status: model.PaymentPending}
		if err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, ledgerError("initiate payment", err)
	}
	return payment, nil
}

// ConfirmPayment applies the gateway result of a payment.  On success the
// payment and its booking are marked paid together; on failure only the
// payment is marked failed.
func (l *Ledger) ConfirmPayment(ctx context.Context, paymentID uint64, success bool) (*model.Payment, error) {
	if paymentID == 0 {
		return nil, ValidationError{Field: "payment_id", Msg: "must be positive"}
	}
	var (
		payment *model.Payment
		booking *model.Booking
	)
	err := l.runTx(ctx, func(tx repository.LedgerTx) error {
		p, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == model.PaymentSuccess {
			return ConflictError{Resource: "payment", Msg: "payment already confirmed"}
		}
		if !success {
			if err := tx.SetPaymentStatus(ctx, p.ID, model.PaymentFailed, nil); err != nil {
				return err
			}
			p.Status = model.PaymentFailed
			payment = p
			return nil
		}
		b, err := tx.LockBooking(ctx, p.BookingID)
		if err != nil {
			return err
		}
		switch b.Status {
		case model.BookingPending:
		case model.BookingPaid:
			return ConflictError{Resource: "booking", Msg: "booking is already paid"}
		default:
			return ConflictError{Resource: "booking", Msg: "booking is " + b.Status}
		}
		now := l.now().UTC()
		if err := tx.SetPaymentStatus(ctx, p.ID, model.PaymentSuccess, &now); err != nil {
			return err
		}
		if err := tx.SetBookingStatus(ctx, b.ID, model.BookingPaid, now); err != nil {
			return err
		}
		p.Status, p.PaidAt = model.PaymentSuccess, &now
		b.Status, b.UpdatedAt = model.BookingPaid, now
		payment, booking = p, b
		return nil
	})
	if err != nil {
		return nil, ledgerError("confirm payment", err)
	}
	if booking != nil {
		bookingTransitions.WithLabelValues(model.BookingPaid).Inc()
		l.publish(ctx, queue.EventBookingPaid, booking, payment.Amount)
	}
	return payment, nil
}

// ListMine returns the caller's bookings, newest first.
func (l *Ledger) ListMine(ctx context.Context, userID uint64) ([]repository.BookingDetail, error) {
	out, err := l.reader.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("list bookings", err)
	}
	return out, nil
}

func (l *Ledger) publish(ctx context.Context, typ string, b *model.Booking, amount int64) {
	if l.events == nil || b == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:             typ,
		BookingID:        b.ID,
		UserID:           b.UserID,
		TripID:           b.TripID,
		PickupStationID:  b.PickupStationID,
		DropoffStationID: b.DropoffStationID,
		Status:           b.Status,
		Amount:           amount,
		OccurredAt:       l.now().UTC().Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := l.events.Publish(pctx, ev); err != nil {
		utils.LogEvent("", "ledger", "publish", fmt.Sprintf("%s booking=%d failed: %v", typ, b.ID, err))
	}
}
