package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// TripLock is the slice of a trip the ledger needs while it holds the
// trip row lock.
type TripLock struct {
	TripID    uint64
	RouteID   uint64
	Status    string
	Price     int64
	SeatCount int
}

// LedgerTx is the set of statements the booking ledger runs inside one
// transaction.  Lock* methods take row locks that are held until the
// transaction ends.
type LedgerTx interface {
	LockTrip(ctx context.Context, tripID uint64) (*TripLock, error)
	CountActiveBookings(ctx context.Context, tripID uint64) (int, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	LockBooking(ctx context.Context, bookingID uint64) (*model.Booking, error)
	SetBookingStatus(ctx context.Context, bookingID uint64, status string, at time.Time) error
	InsertPayment(ctx context.Context, p *model.Payment) error
	LockPayment(ctx context.Context, paymentID uint64) (*model.Payment, error)
	SetPaymentStatus(ctx context.Context, paymentID uint64, status string, paidAt *time.Time) error
}

// LedgerStore runs ledger transactions against MySQL.
type LedgerStore struct {
	db *sql.DB
}

// NewLedgerStore returns a LedgerStore bound to the given database.
func NewLedgerStore(db *sql.DB) *LedgerStore { return &LedgerStore{db: db} }

// RouteOfTrip returns the route a trip runs on, without taking a lock.
// The ledger resolves reference data with it before entering a
// transaction.
func (s *LedgerStore) RouteOfTrip(ctx context.Context, tripID uint64) (uint64, error) {
	var routeID uint64
	err := s.db.QueryRowContext(ctx, `SELECT route_id FROM trips WHERE id = ?`, tripID).Scan(&routeID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrTripNotFound
	}
	return routeID, err
}

// InTx runs fn inside a READ COMMITTED transaction and commits when fn
// returns nil.  READ COMMITTED makes every statement after LockTrip see
// the bookings committed by the previous lock holder.  Any error from fn
// or from commit rolls the whole transaction back.
func (s *LedgerStore) InTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlLedgerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

type mysqlLedgerTx struct {
	tx *sql.Tx
}

func (t *mysqlLedgerTx) LockTrip(ctx context.Context, tripID uint64) (*TripLock, error) {
	const q = `SELECT t.id, t.route_id, t.status, t.price, b.seat_count
               FROM trips t
               JOIN buses b ON b.id = t.bus_id
               WHERE t.id = ?
               FOR UPDATE`
	var l TripLock
	err := t.tx.QueryRowContext(ctx, q, tripID).Scan(&l.TripID, &l.RouteID, &l.Status, &l.Price, &l.SeatCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *mysqlLedgerTx) CountActiveBookings(ctx context.Context, tripID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE trip_id = ? AND status IN ('pending', 'paid')`
	var n int
	err := t.tx.QueryRowContext(ctx, q, tripID).Scan(&n)
	return n, err
}

func (t *mysqlLedgerTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, trip_id, pickup_station_id, dropoff_station_id, status, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, b.UserID, b.TripID, b.PickupStationID, b.DropoffStationID,
		b.Status, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

func (t *mysqlLedgerTx) LockBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, trip_id, pickup_station_id, dropoff_station_id, status, created_at, updated_at
               FROM bookings WHERE id = ? FOR UPDATE`
	var b model.Booking
	err := t.tx.QueryRowContext(ctx, q, bookingID).Scan(
		&b.ID, &b.UserID, &b.TripID, &b.PickupStationID, &b.DropoffStationID, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *mysqlLedgerTx) SetBookingStatus(ctx context.Context, bookingID uint64, status string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`, status, at, bookingID)
	return err
}

func (t *mysqlLedgerTx) InsertPayment(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, amount, method, status) VALUES (?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, p.BookingID, p.Amount, p.Method, p.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (t *mysqlLedgerTx) LockPayment(ctx context.Context, paymentID uint64) (*model.Payment, error) {
	const q = `SELECT id, booking_id, amount, method, status, paid_at FROM payments WHERE id = ? FOR UPDATE`
	var p model.Payment
	var paidAt sql.NullTime
	err := t.tx.QueryRowContext(ctx, q, paymentID).Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Status, &paidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		ts := paidAt.Time
		p.PaidAt = &ts
	}
	return &p, nil
}

func (t *mysqlLedgerTx) SetPaymentStatus(ctx context.Context, paymentID uint64, status string, paidAt *time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE payments SET status = ?, paid_at = ? WHERE id = ?`, status, paidAt, paymentID)
	return err
}
