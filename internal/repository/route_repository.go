package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// RouteRepo reads routes and their ordered stops.  Routes and route
// stops are created by the route-management surface; the search engine
// and ledger only need the topology.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo constructs a RouteRepo with the given DB handle.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{db: db} }

// GetByID returns the route row or ErrRouteNotFound.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (*model.Route, error) {
	const q = `SELECT id, operator_id, name, start_station_id, end_station_id, distance_km, duration_minutes, is_active
               FROM routes WHERE id = ?`
	var rt model.Route
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&rt.ID, &rt.OperatorID, &rt.Name, &rt.StartStationID, &rt.EndStationID,
		&rt.DistanceKm, &rt.DurationMinutes, &rt.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// StopsOf loads the full stop sequence of a route: the start station at
// order -1, the explicit route_stops in stop_order, and the end station
// at model.EndStopOrder.  Each entry is joined with its station row.
// It returns ErrRouteNotFound when the route (or one of its terminal
// stations) is missing.
func (r *RouteRepo) StopsOf(ctx context.Context, routeID uint64) (model.StopSequence, error) {
	const routeQ = `SELECT s1.id, s1.name, s1.address, s1.latitude, s1.longitude,
                           s2.id, s2.name, s2.address, s2.latitude, s2.longitude
                    FROM routes r
                    JOIN bus_stations s1 ON s1.id = r.start_station_id
                    JOIN bus_stations s2 ON s2.id = r.end_station_id
                    WHERE r.id = ?`
	var start, end model.Station
	err := r.db.QueryRowContext(ctx, routeQ, routeID).Scan(
		&start.ID, &start.Name, &start.Address, &start.Latitude, &start.Longitude,
		&end.ID, &end.Name, &end.Address, &end.Latitude, &end.Longitude,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}

	const stopsQ = `SELECT rs.station_id, st.name, st.address, st.latitude, st.longitude, rs.stop_order,
                           COALESCE(TIME_FORMAT(rs.arrival_time, '%H:%i'), ''),
                           COALESCE(TIME_FORMAT(rs.departure_time, '%H:%i'), '')
                    FROM route_stops rs
                    JOIN bus_stations st ON st.id = rs.station_id
                    WHERE rs.route_id = ?
                    ORDER BY rs.stop_order ASC`
	rows, err := r.db.QueryContext(ctx, stopsQ, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stops := make([]model.Stop, 0)
	for rows.Next() {
		var s model.Stop
		if err := rows.Scan(&s.StationID, &s.StationName, &s.Address, &s.Latitude, &s.Longitude,
			&s.Order, &s.ArrivalTime, &s.DepartureTime); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return model.BuildStopSequence(start, end, stops), nil
}
