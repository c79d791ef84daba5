package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/config"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

type fakeLister struct {
	rows []repository.TripRow
	err  error
	got  repository.TripFilter
}

func (f *fakeLister) List(_ context.Context, flt repository.TripFilter) ([]repository.TripRow, error) {
	f.got = flt
	return f.rows, f.err
}

func tripRow(id, routeID uint64, date, tm string, seats, active int) repository.TripRow {
	return repository.TripRow{
		Trip: model.Trip{ID: id, RouteID: routeID, DepartureDate: date, DepartureTime: tm,
			Price: 450000, Status: model.TripScheduled},
		RouteName: "Hà Nội - Sài Gòn", SeatCount: seats, ActiveBookings: active,
	}
}

func searchConfig() config.SearchConfig {
	return config.SearchConfig{ResultCap: 50, HighRelevanceKm: 10, StopCacheTTL: time.Minute, StopCacheSize: 64}
}

func fixedClock() time.Time { return time.Date(2025, 11, 20, 23, 30, 0, 0, time.UTC) }

func TestSearchStationPair(t *testing.T) {
	stops := &fakeStops{routes: map[uint64]model.StopSequence{
		7: sampleRoute(),
		8: model.BuildStopSequence(station(9, "End", 10.8, 106.7), station(1, "Start", 21.0, 105.8), nil),
	}}
	lister := &fakeLister{rows: []repository.TripRow{
		tripRow(100, 7, "2025-12-01", "06:00", 40, 10),
		tripRow(101, 8, "2025-12-01", "07:00", 40, 0), // reverse direction
		tripRow(102, 7, "2025-12-01", "21:00", 40, 40),
	}}
	svc := NewSearchService(lister, NewStopGraph(stops, 16, time.Minute), searchConfig()).WithClock(fixedClock)

	res, err := svc.Search(context.Background(), StationQuery{FromStationID: 1, ToStationID: 3, Date: "2025-12-01"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 2 || res[0].TripID != 100 || res[1].TripID != 102 {
		t.Fatalf("unexpected results: %+v", res)
	}
	if res[0].Available != 30 || res[1].Available != 0 {
		t.Fatalf("availability = %d, %d", res[0].Available, res[1].Available)
	}
	if res[0].Pickup.Time != "06:00" {
		t.Fatalf("start pickup should fall back to departure time, got %q", res[0].Pickup.Time)
	}
	if res[0].Dropoff.Time != "15:00" {
		t.Fatalf("dropoff time = %q", res[0].Dropoff.Time)
	}
	if lister.got.Status != model.TripScheduled || lister.got.Date != "2025-12-01" {
		t.Fatalf("filter = %+v", lister.got)
	}
	if len(lister.got.ThroughStations) != 2 {
		t.Fatalf("expected station prefilter, got %+v", lister.got.ThroughStations)
	}
}

func TestSearchDefaultsToToday(t *testing.T) {
	lister := &fakeLister{}
	svc := NewSearchService(lister, NewStopGraph(&fakeStops{}, 16, time.Minute), searchConfig()).WithClock(fixedClock)
	res, err := svc.Search(context.Background(), StationQuery{FromStationID: 1, ToStationID: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", res)
	}
	if lister.got.FromDate != "2025-11-20" || lister.got.Date != "" {
		t.Fatalf("filter = %+v", lister.got)
	}
}

func TestSearchTodayFollowsConfiguredZone(t *testing.T) {
	lister := &fakeLister{}
	cfg := searchConfig()
	cfg.Location = time.FixedZone("ICT", 7*3600)
	svc := NewSearchService(lister, NewStopGraph(&fakeStops{}, 16, time.Minute), cfg).WithClock(fixedClock)
	if _, err := svc.Search(context.Background(), StationQuery{FromStationID: 1, ToStationID: 2}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	// 23:30 UTC on the 20th is already 06:30 on the 21st at UTC+7.
	if lister.got.FromDate != "2025-11-21" {
		t.Fatalf("FromDate = %q", lister.got.FromDate)
	}
}

func TestSearchValidation(t *testing.T) {
	lister := &fakeLister{}
	svc := NewSearchService(lister, NewStopGraph(&fakeStops{}, 16, time.Minute), searchConfig())
	ctx := context.Background()

	stationCases := []StationQuery{
		{FromStationID: 0, ToStationID: 2},
		{FromStationID: 1, ToStationID: 0},
		{FromStationID: 1, ToStationID: 1},
		{FromStationID: 1, ToStationID: 2, Date: "01/12/2025"},
	}
	for _, q := range stationCases {
		if _, err := svc.Search(ctx, q); !IsValidation(err) {
			t.Errorf("Search(%+v) err=%v want ValidationError", q, err)
		}
	}
	coordCases := []CoordinateQuery{
		{FromLat: 91, FromLng: 0, ToLat: 0, ToLng: 0},
		{FromLat: 0, FromLng: 0, ToLat: 0, ToLng: 181},
		{FromLat: math.NaN(), FromLng: 0, ToLat: 0, ToLng: 0},
		{FromLat: 1, FromLng: 1, ToLat: 2, ToLng: 2, Date: "2025-13-01"},
	}
	for _, q := range coordCases {
		if _, err := svc.SearchByCoordinates(ctx, q); !IsValidation(err) {
			t.Errorf("SearchByCoordinates(%+v) err=%v want ValidationError", q, err)
		}
	}
	if lister.got.Status != "" {
		t.Fatal("store must not be queried for invalid input")
	}
}

func TestSearchSkipsBrokenRoutes(t *testing.T) {
	stops := &fakeStops{
		routes: map[uint64]model.StopSequence{7: sampleRoute()},
		err:    map[uint64]error{8: errors.New("bad row")},
	}
	lister := &fakeLister{rows: []repository.TripRow{
		tripRow(100, 8, "2025-12-01", "06:00", 40, 0),
		tripRow(101, 7, "2025-12-01", "07:00", 40, 0),
		tripRow(102, 9, "2025-12-01", "08:00", 40, 0), // route gone
	}}
	svc := NewSearchService(lister, NewStopGraph(stops, 16, time.Minute), searchConfig())
	res, err := svc.Search(context.Background(), StationQuery{FromStationID: 2, ToStationID: 9, Date: "2025-12-01"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].TripID != 101 {
		t.Fatalf("unexpected results: %+v", res)
	}
}

func TestSearchStoreFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection reset")}
	svc := NewSearchService(lister, NewStopGraph(&fakeStops{}, 16, time.Minute), searchConfig())
	if _, err := svc.Search(context.Background(), StationQuery{FromStationID: 1, ToStationID: 2}); !IsInternal(err) {
		t.Fatalf("expected InternalError, got %v", err)
	}
}

// straightRoute has a start and end station offset north of the query
// points by off degrees of latitude (about 111 km per degree).
func straightRoute(off float64) model.StopSequence {
	return model.BuildStopSequence(
		station(1, "Start", 21.0+off, 105.8),
		station(2, "End", 10.8+off, 106.7),
		nil,
	)
}

var hanoiToSaigon = CoordinateQuery{FromLat: 21.0, FromLng: 105.8, ToLat: 10.8, ToLng: 106.7}

func TestSearchByCoordinatesRanking(t *testing.T) {
	stops := &fakeStops{routes: map[uint64]model.StopSequence{
		1: straightRoute(0.18),   // ~20 km each side
		2: straightRoute(0.0135), // ~1.5 km each side
	}}
	lister := &fakeLister{rows: []repository.TripRow{
		tripRow(10, 1, "2025-12-01", "06:00", 40, 0),
		tripRow(20, 2, "2025-12-01", "09:00", 40, 5),
	}}
	svc := NewSearchService(lister, NewStopGraph(stops, 16, time.Minute), searchConfig())

	res, err := svc.SearchByCoordinates(context.Background(), hanoiToSaigon)
	if err != nil {
		t.Fatalf("SearchByCoordinates: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	near, far := res[0], res[1]
	if near.TripID != 20 || far.TripID != 10 {
		t.Fatalf("order = %d, %d", near.TripID, far.TripID)
	}
	if near.Relevance != RelevanceHigh || math.Abs(near.TransitDistance-3) > 0.2 {
		t.Fatalf("near = %.2f %s", near.TransitDistance, near.Relevance)
	}
	if far.Relevance != RelevanceMedium || math.Abs(far.TransitDistance-40) > 0.5 {
		t.Fatalf("far = %.2f %s", far.TransitDistance, far.Relevance)
	}
	if near.Available != 35 {
		t.Fatalf("available = %d", near.Available)
	}
	if near.Pickup.StationID != 1 || near.Dropoff.StationID != 2 {
		t.Fatalf("pair = %d -> %d", near.Pickup.StationID, near.Dropoff.StationID)
	}
}

func TestSearchByCoordinatesCap(t *testing.T) {
	stops := &fakeStops{routes: map[uint64]model.StopSequence{}}
	lister := &fakeLister{}
	// Insert in descending distance so that sorting matters.
	for i := 80; i >= 1; i-- {
		rid := uint64(i)
		stops.routes[rid] = straightRoute(float64(i) * 0.01)
		lister.rows = append(lister.rows, tripRow(1000+rid, rid, "2025-12-01", "06:00", 40, 0))
	}
	svc := NewSearchService(lister, NewStopGraph(stops, 128, time.Minute), searchConfig())

	res, err := svc.SearchByCoordinates(context.Background(), hanoiToSaigon)
	if err != nil {
		t.Fatalf("SearchByCoordinates: %v", err)
	}
	if len(res) != 50 {
		t.Fatalf("expected 50 results, got %d", len(res))
	}
	if !sort.SliceIsSorted(res, func(i, j int) bool { return res[i].TransitDistance < res[j].TransitDistance }) {
		t.Fatal("results are not sorted by transit distance")
	}
	if res[0].TripID != 1001 || res[49].TripID != 1050 {
		t.Fatalf("first/last = %d/%d", res[0].TripID, res[49].TripID)
	}
}

func TestBestPairUsesIntermediateStops(t *testing.T) {
	// Start and End are far from the traveler, but X then Y sit right on
	// the origin and destination.
	seq := model.BuildStopSequence(
		station(1, "Start", 30, 100),
		station(2, "End", 0, 120),
		[]model.Stop{
			stop(3, "X", 21.0, 105.8, 2, "", ""),
			stop(4, "Y", 10.8, 106.7, 4, "", ""),
			stop(5, "Z", 21.0, 105.8, 6, "", ""), // near origin but after Y
		},
	)
	p, d, pd, dd, ok := bestPair(seq, hanoiToSaigon)
	if !ok || p.StationID != 3 || d.StationID != 4 {
		t.Fatalf("best pair = %d -> %d (ok=%v)", p.StationID, d.StationID, ok)
	}
	if pd > 0.001 || dd > 0.001 {
		t.Fatalf("distances = %.4f, %.4f", pd, dd)
	}

	reversed := model.BuildStopSequence(
		station(1, "Start", 10.8, 106.7),
		station(2, "End", 21.0, 105.8),
		nil,
	)
	p, d, _, _, ok = bestPair(reversed, hanoiToSaigon)
	if !ok || p.StationID != 1 || d.StationID != 2 {
		t.Fatalf("reverse route must still yield the only ordered pair, got %d -> %d", p.StationID, d.StationID)
	}
}
