package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// BookingRepo serves the read side of bookings: a traveler's history
// and the detail printed on a ticket.  All writes go through the
// LedgerStore so that they run under the trip lock.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// StationRef is the station summary embedded in a booking detail.
type StationRef struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// BookingDetail is a booking joined with its stations and trip schedule.
type BookingDetail struct {
	ID            uint64     `json:"id"`
	UserID        uint64     `json:"user_id"`
	TripID        uint64     `json:"trip_id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	Pickup        StationRef `json:"pickup_station"`
	Dropoff       StationRef `json:"dropoff_station"`
	DepartureDate string     `json:"departure_date"`
	DepartureTime string     `json:"departure_time"`
	Price         int64      `json:"price"`
	RouteName     string     `json:"route_name"`
	PlateNumber   string     `json:"plate_number"`
}

const bookingDetailSelect = `SELECT bk.id, bk.user_id, bk.trip_id, bk.status, bk.created_at,
       ps.id, ps.name, ps.address,
       ds.id, ds.name, ds.address,
       DATE_FORMAT(t.departure_date, '%Y-%m-%d'),
       TIME_FORMAT(t.departure_time, '%H:%i'),
       t.price, r.name, b.plate_number
FROM bookings bk
JOIN trips t ON t.id = bk.trip_id
JOIN routes r ON r.id = t.route_id
JOIN buses b ON b.id = t.bus_id
JOIN bus_stations ps ON ps.id = bk.pickup_station_id
JOIN bus_stations ds ON ds.id = bk.dropoff_station_id`

func scanBookingDetail(sc interface{ Scan(...any) error }, d *BookingDetail) error {
	return sc.Scan(
		&d.ID, &d.UserID, &d.TripID, &d.Status, &d.CreatedAt,
		&d.Pickup.ID, &d.Pickup.Name, &d.Pickup.Address,
		&d.Dropoff.ID, &d.Dropoff.Name, &d.Dropoff.Address,
		&d.DepartureDate, &d.DepartureTime,
		&d.Price, &d.RouteName, &d.PlateNumber,
	)
}

// ListByUser returns all bookings of a user, newest first.  An empty
// slice is returned when the user has none.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, bookingDetailSelect+`
WHERE bk.user_id = ?
ORDER BY bk.created_at DESC, bk.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		if err := scanBookingDetail(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDetail returns one booking detail or ErrBookingNotFound.  Ownership
// is checked by the caller using UserID.
func (r *BookingRepo) GetDetail(ctx context.Context, bookingID uint64) (*BookingDetail, error) {
	var d BookingDetail
	err := scanBookingDetail(r.db.QueryRowContext(ctx, bookingDetailSelect+`
WHERE bk.id = ?`, bookingID), &d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
