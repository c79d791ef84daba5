package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// TripRepo reads trips together with the bus capacity and the number of
// bookings currently holding a seat.
type TripRepo struct {
	db *sql.DB
}

// NewTripRepo constructs a TripRepo with the given DB handle.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// TripFilter selects candidate trips for a search.  Exactly one of Date
// or FromDate should be set; both are "YYYY-MM-DD".  ThroughStations,
// when non-empty, keeps only trips whose route touches every listed
// station (start, end or an explicit stop); ordering is checked by the
// caller.
type TripFilter struct {
	Status          string
	Date            string
	FromDate        string
	ThroughStations []uint64
}

// TripRow is a trip joined with route, operator and bus data plus the
// count of active (pending or paid) bookings at query time.
type TripRow struct {
	model.Trip
	RouteName      string
	OperatorName   string
	PlateNumber    string
	BusType        string
	SeatCount      int
	ActiveBookings int
}

const tripRowSelect = `SELECT t.id, t.route_id, t.bus_id,
       DATE_FORMAT(t.departure_date, '%Y-%m-%d'),
       TIME_FORMAT(t.departure_time, '%H:%i'),
       t.price, t.status,
       r.name, COALESCE(o.name, ''), b.plate_number, b.bus_type, b.seat_count,
       (SELECT COUNT(*) FROM bookings bk
         WHERE bk.trip_id = t.id AND bk.status IN ('pending', 'paid')) AS active_bookings
FROM trips t
JOIN routes r ON r.id = t.route_id
JOIN buses b  ON b.id = t.bus_id
LEFT JOIN bus_operators o ON o.id = r.operator_id`

func scanTripRow(sc interface{ Scan(...any) error }, tr *TripRow) error {
	return sc.Scan(
		&tr.ID, &tr.RouteID, &tr.BusID, &tr.DepartureDate, &tr.DepartureTime,
		&tr.Price, &tr.Status,
		&tr.RouteName, &tr.OperatorName, &tr.PlateNumber, &tr.BusType, &tr.SeatCount,
		&tr.ActiveBookings,
	)
}

// List returns trips matching the filter ordered by departure date, time
// and id.
func (r *TripRepo) List(ctx context.Context, f TripFilter) ([]TripRow, error) {
	where := []string{}
	args := []any{}
	if f.Status != "" {
		where = append(where, "t.status = ?")
		args = append(args, f.Status)
	}
	switch {
	case f.Date != "":
		where = append(where, "t.departure_date = ?")
		args = append(args, f.Date)
	case f.FromDate != "":
		where = append(where, "t.departure_date >= ?")
		args = append(args, f.FromDate)
	}
	for _, sid := range f.ThroughStations {
		where = append(where, `(r.start_station_id = ? OR r.end_station_id = ? OR EXISTS (
            SELECT 1 FROM route_stops rs WHERE rs.route_id = r.id AND rs.station_id = ?))`)
		args = append(args, sid, sid, sid)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	q := tripRowSelect + `
WHERE ` + cond + `
ORDER BY t.departure_date ASC, t.departure_time ASC, t.id ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TripRow, 0)
	for rows.Next() {
		var tr TripRow
		if err := scanTripRow(rows, &tr); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// GetByID returns one trip row or ErrTripNotFound.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (*TripRow, error) {
	var tr TripRow
	err := scanTripRow(r.db.QueryRowContext(ctx, tripRowSelect+`
WHERE t.id = ?`, id), &tr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// Capacity returns the bus seat count and the active booking count for a
// trip as of now.  It returns ErrTripNotFound when the trip is missing.
func (r *TripRepo) Capacity(ctx context.Context, tripID uint64) (seatCount, active int, err error) {
	const q = `SELECT b.seat_count,
                      (SELECT COUNT(*) FROM bookings bk
                        WHERE bk.trip_id = t.id AND bk.status IN ('pending', 'paid'))
               FROM trips t
               JOIN buses b ON b.id = t.bus_id
               WHERE t.id = ?`
	err = r.db.QueryRowContext(ctx, q, tripID).Scan(&seatCount, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrTripNotFound
	}
	return seatCount, active, err
}
