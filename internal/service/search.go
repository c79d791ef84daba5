package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/config"
	"github.com/iliyamo/bus-ticket-reservation/internal/geo"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/utils"
)

const dateLayout = "2006-01-02"

// Relevance labels attached to coordinate matches.
const (
	RelevanceHigh   = "High"
	RelevanceMedium = "Medium"
)

// TripLister returns candidate trips with capacity and active bookings
// already aggregated.
type TripLister interface {
	List(ctx context.Context, f repository.TripFilter) ([]repository.TripRow, error)
}

// StationQuery asks for trips that carry a traveler from one station to
// another.  Date is optional ("YYYY-MM-DD").
type StationQuery struct {
	FromStationID uint64
	ToStationID   uint64
	Date          string
}

// CoordinateQuery asks for trips that best connect two arbitrary points.
type CoordinateQuery struct {
	FromLat float64
	FromLng float64
	ToLat   float64
	ToLng   float64
	Date    string
}

// StopInfo is a boarding or alighting point shown in a search result.
// Time is the scheduled departure for a pickup and the scheduled arrival
// for a dropoff; it is empty when the route does not publish one.
type StopInfo struct {
	StationID uint64  `json:"station_id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Order     int     `json:"stop_order"`
	Time      string  `json:"time,omitempty"`
}

// TripResult is one trip that can carry the traveler.
type TripResult struct {
	TripID        uint64   `json:"trip_id"`
	RouteID       uint64   `json:"route_id"`
	RouteName     string   `json:"route_name"`
	OperatorName  string   `json:"operator_name"`
	PlateNumber   string   `json:"plate_number"`
	BusType       string   `json:"bus_type"`
	DepartureDate string   `json:"departure_date"`
	DepartureTime string   `json:"departure_time"`
	Price         int64    `json:"price"`
	SeatCount     int      `json:"seat_count"`
	Available     int      `json:"available_seats"`
	Pickup        StopInfo `json:"pickup"`
	Dropoff       StopInfo `json:"dropoff"`
}

// RankedTripResult is a coordinate match with its walking distances.
// Distances are kilometres rounded to two decimals.
type RankedTripResult struct {
	TripResult
	DistToPickup    float64 `json:"dist_to_pickup"`
	DistFromDropoff float64 `json:"dist_from_dropoff"`
	TransitDistance float64 `json:"transit_distance"`
	Relevance       string  `json:"relevance_score"`
}

// SearchService finds scheduled trips between two stations or two
// coordinates.
type SearchService struct {
	trips TripLister
	stops *StopGraph
	cfg   config.SearchConfig
	now   func() time.Time
}

func NewSearchService(trips TripLister, stops *StopGraph, cfg config.SearchConfig) *SearchService {
	return &SearchService{trips: trips, stops: stops, cfg: cfg, now: time.Now}
}

// WithClock replaces the clock used to resolve "today".
func (s *SearchService) WithClock(now func() time.Time) *SearchService {
	s.now = now
	return s
}

// today is the current date in the configured calendar zone.
func (s *SearchService) today() string {
	loc := s.cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return s.now().In(loc).Format(dateLayout)
}

func (s *SearchService) filter(date string) (repository.TripFilter, error) {
	f := repository.TripFilter{Status: model.TripScheduled}
	if date == "" {
		f.FromDate = s.today()
		return f, nil
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return f, ValidationError{Field: "date", Msg: "must be YYYY-MM-DD", Err: err}
	}
	f.Date = date
	return f, nil
}

// Search returns the scheduled trips whose route visits q.FromStationID
// before q.ToStationID, in departure order.  An empty slice means no
// trip matches.
func (s *SearchService) Search(ctx context.Context, q StationQuery) ([]TripResult, error) {
	if q.FromStationID == 0 {
		return nil, ValidationError{Field: "from_station_id", Msg: "must be positive"}
	}
	if q.ToStationID == 0 {
		return nil, ValidationError{Field: "to_station_id", Msg: "must be positive"}
	}
	if q.FromStationID == q.ToStationID {
		return nil, ValidationError{Field: "to_station_id", Msg: "must differ from from_station_id"}
	}
	f, err := s.filter(q.Date)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	defer func() { searchDuration.WithLabelValues("station").Observe(time.Since(started).Seconds()) }()
	searchRequests.WithLabelValues("station").Inc()

	f.ThroughStations = []uint64{q.FromStationID, q.ToStationID}
	rows, err := s.trips.List(ctx, f)
	if err != nil {
		return nil, storeError("list trips", err)
	}

	out := make([]TripResult, 0, len(rows))
	for _, row := range rows {
		seq, err := s.stops.StopsOf(ctx, row.RouteID)
		if err != nil {
			utils.LogEvent("", "search", "stops_of", fmt.Sprintf("route=%d skipped: %v", row.RouteID, err))
			continue
		}
		pickup, dropoff, ok := seq.Reachable(q.FromStationID, q.ToStationID)
		if !ok {
			continue
		}
		out = append(out, newTripResult(row, pickup, dropoff))
	}
	return out, nil
}

// SearchByCoordinates ranks every scheduled trip by how far the traveler
// has to move to its best boarding stop and from its best alighting stop.
// There is no distance cutoff; the result is capped at the configured
// size.
func (s *SearchService) SearchByCoordinates(ctx context.Context, q CoordinateQuery) ([]RankedTripResult, error) {
	if !geo.ValidCoordinate(q.FromLat, q.FromLng) {
		return nil, ValidationError{Field: "from", Msg: "invalid coordinate"}
	}
	if !geo.ValidCoordinate(q.ToLat, q.ToLng) {
		return nil, ValidationError{Field: "to", Msg: "invalid coordinate"}
	}
	f, err := s.filter(q.Date)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	defer func() { searchDuration.WithLabelValues("coordinates").Observe(time.Since(started).Seconds()) }()
	searchRequests.WithLabelValues("coordinates").Inc()

	rows, err := s.trips.List(ctx, f)
	if err != nil {
		return nil, storeError("list trips", err)
	}

	type routeMatch struct {
		pickup, dropoff model.Stop
		pd, dd          float64
		ok              bool
	}
	byRoute := map[uint64]routeMatch{}
	out := make([]RankedTripResult, 0)
	for _, row := range rows {
		m, seen := byRoute[row.RouteID]
		if !seen {
			seq, err := s.stops.StopsOf(ctx, row.RouteID)
			if err != nil {
				utils.LogEvent("", "search", "stops_of", fmt.Sprintf("route=%d skipped: %v", row.RouteID, err))
				continue
			}
			m.pickup, m.dropoff, m.pd, m.dd, m.ok = bestPair(seq, q)
			byRoute[row.RouteID] = m
		}
		if !m.ok {
			continue
		}
		total := m.pd + m.dd
		relevance := RelevanceMedium
		if total < s.cfg.HighRelevanceKm {
			relevance = RelevanceHigh
		}
		out = append(out, RankedTripResult{
			TripResult:      newTripResult(row, m.pickup, m.dropoff),
			DistToPickup:    round2(m.pd),
			DistFromDropoff: round2(m.dd),
			TransitDistance: total,
			Relevance:       relevance,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TransitDistance < out[j].TransitDistance })
	if limit := s.cfg.ResultCap; limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].TransitDistance = round2(out[i].TransitDistance)
	}
	return out, nil
}

// bestPair picks the (pickup, dropoff) pair with pickup.Order <
// dropoff.Order that minimises the sum of the distance from the origin
// to the pickup and from the dropoff to the destination.  seq must be
// sorted by order.  For each pickup the best later dropoff is read from a
// suffix minimum, so the scan is linear in the number of stops.
func bestPair(seq model.StopSequence, q CoordinateQuery) (pickup, dropoff model.Stop, pd, dd float64, ok bool) {
	n := len(seq)
	if n < 2 {
		return model.Stop{}, model.Stop{}, 0, 0, false
	}
	drop := make([]float64, n)
	for i, st := range seq {
		drop[i] = geo.DistanceKm(st.Latitude, st.Longitude, q.ToLat, q.ToLng)
	}
	// suffix[i] is the index of the closest dropoff in seq[i:]; the
	// earliest index wins ties.
	suffix := make([]int, n)
	suffix[n-1] = n - 1
	for i := n - 2; i >= 0; i-- {
		suffix[i] = i
		if drop[suffix[i+1]] < drop[i] {
			suffix[i] = suffix[i+1]
		}
	}

	best := math.Inf(1)
	k := 0
	for i := 0; i < n; i++ {
		if k <= i {
			k = i + 1
		}
		for k < n && seq[k].Order <= seq[i].Order {
			k++
		}
		if k >= n {
			break
		}
		p := geo.DistanceKm(q.FromLat, q.FromLng, seq[i].Latitude, seq[i].Longitude)
		j := suffix[k]
		if p+drop[j] < best {
			best = p + drop[j]
			pickup, dropoff, pd, dd, ok = seq[i], seq[j], p, drop[j], true
		}
	}
	return pickup, dropoff, pd, dd, ok
}

func newTripResult(row repository.TripRow, pickup, dropoff model.Stop) TripResult {
	pickupTime := pickup.DepartureTime
	if pickupTime == "" && pickup.Order == model.StartStopOrder {
		pickupTime = row.DepartureTime
	}
	return TripResult{
		TripID:        row.ID,
		RouteID:       row.RouteID,
		RouteName:     row.RouteName,
		OperatorName:  row.OperatorName,
		PlateNumber:   row.PlateNumber,
		BusType:       row.BusType,
		DepartureDate: row.DepartureDate,
		DepartureTime: row.DepartureTime,
		Price:         row.Price,
		SeatCount:     row.SeatCount,
		Available:     Remaining(row.SeatCount, row.ActiveBookings),
		Pickup:        stopInfo(pickup, pickupTime),
		Dropoff:       stopInfo(dropoff, dropoff.ArrivalTime),
	}
}

func stopInfo(st model.Stop, at string) StopInfo {
	return StopInfo{
		StationID: st.StationID,
		Name:      st.StationName,
		Address:   st.Address,
		Latitude:  st.Latitude,
		Longitude: st.Longitude,
		Order:     st.Order,
		Time:      at,
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
