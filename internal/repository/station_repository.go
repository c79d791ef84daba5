package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// StationRepo reads bus stations.  Stations are maintained by the admin
// surface; this repository never writes them.
type StationRepo struct {
	db *sql.DB
}

// NewStationRepo constructs a StationRepo with the given DB handle.
func NewStationRepo(db *sql.DB) *StationRepo { return &StationRepo{db: db} }

const stationColumns = `id, name, address, province_id, latitude, longitude`

// List returns all stations ordered by name, optionally restricted to a
// province when provinceID is non-zero.
func (r *StationRepo) List(ctx context.Context, provinceID uint64) ([]model.Station, error) {
	q := `SELECT ` + stationColumns + ` FROM bus_stations`
	args := []any{}
	if provinceID > 0 {
		q += ` WHERE province_id = ?`
		args = append(args, provinceID)
	}
	q += ` ORDER BY name ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Station, 0)
	for rows.Next() {
		var s model.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.ProvinceID, &s.Latitude, &s.Longitude); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID returns a single station or ErrStationNotFound.
func (r *StationRepo) GetByID(ctx context.Context, id uint64) (*model.Station, error) {
	var s model.Station
	err := r.db.QueryRowContext(ctx, `SELECT `+stationColumns+` FROM bus_stations WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.Address, &s.ProvinceID, &s.Latitude, &s.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
