package model

import (
    "math"
    "sort"
)

// Stop orders of the synthetic start and end entries of a route.  Explicit
// route stops use orders >= 1, so the start station always sorts first
// and the end station always sorts last.
const (
    StartStopOrder = -1
    EndStopOrder   = math.MaxInt32
)

// Route is an operator's path between a fixed start and end station.
//
// Fields:
//  ID              – primary key identifier.
//  OperatorID      – bus operator owning the route.
//  Name            – display name, e.g. "Hà Nội - Sài Gòn".
//  StartStationID  – first station of every trip on the route.
//  EndStationID    – last station of every trip on the route.
//  DistanceKm      – declared route length.
//  DurationMinutes – declared travel time.
//  IsActive        – inactive routes are hidden from admin pickers.
type Route struct {
    ID              uint64  `json:"id"`               // routes.id
    OperatorID      uint64  `json:"operator_id"`      // routes.operator_id
    Name            string  `json:"name"`             // routes.name
    StartStationID  uint64  `json:"start_station_id"` // routes.start_station_id
    EndStationID    uint64  `json:"end_station_id"`   // routes.end_station_id
    DistanceKm      float64 `json:"distance_km"`      // routes.distance_km
    DurationMinutes int     `json:"duration_minutes"` // routes.duration_minutes
    IsActive        bool    `json:"is_active"`        // routes.is_active
}

// RouteStop is an explicit intermediate stop of a route.  Times are
// time-of-day strings ("HH:MM") and may be empty.
type RouteStop struct {
    ID            uint64 `json:"id"`             // route_stops.id
    RouteID       uint64 `json:"route_id"`       // route_stops.route_id
    StationID     uint64 `json:"station_id"`     // route_stops.station_id
    StopOrder     int    `json:"stop_order"`     // route_stops.stop_order
    ArrivalTime   string `json:"arrival_time"`   // route_stops.arrival_time
    DepartureTime string `json:"departure_time"` // route_stops.departure_time
}

// Stop is one entry of a route's full stop sequence, joined with its
// station so that callers can rank by distance without another lookup.
type Stop struct {
    StationID     uint64  `json:"station_id"`
    StationName   string  `json:"station_name"`
    Address       string  `json:"address"`
    Latitude      float64 `json:"latitude"`
    Longitude     float64 `json:"longitude"`
    Order         int     `json:"stop_order"`
    ArrivalTime   string  `json:"arrival_time,omitempty"`
    DepartureTime string  `json:"departure_time,omitempty"`
}

// StopSequence is a route's stops sorted by ascending order.
type StopSequence []Stop

// BuildStopSequence returns start + explicit stops + end, sorted by order.
// Explicit stops carrying a sentinel order are ignored so that the start
// and end entries always bound the sequence.
func BuildStopSequence(start, end Station, stops []Stop) StopSequence {
    seq := make(StopSequence, 0, len(stops)+2)
    seq = append(seq, stationStop(start, StartStopOrder))
    for _, s := range stops {
        if s.Order <= StartStopOrder || s.Order >= EndStopOrder {
            continue
        }
        seq = append(seq, s)
    }
    seq = append(seq, stationStop(end, EndStopOrder))
    sort.SliceStable(seq, func(i, j int) bool { return seq[i].Order < seq[j].Order })
    return seq
}

func stationStop(st Station, order int) Stop {
    return Stop{
        StationID:   st.ID,
        StationName: st.Name,
        Address:     st.Address,
        Latitude:    st.Latitude,
        Longitude:   st.Longitude,
        Order:       order,
    }
}

// Find returns the first entry for the station, if any.
func (s StopSequence) Find(stationID uint64) (Stop, bool) {
    for _, st := range s {
        if st.StationID == stationID {
            return st, true
        }
    }
    return Stop{}, false
}

// Reachable reports whether a traveler can board at from and leave at to,
// i.e. some occurrence of from precedes some occurrence of to.  It
// returns the boarding and alighting entries that realise the match
// (earliest boarding, latest alighting).
func (s StopSequence) Reachable(from, to uint64) (pickup, dropoff Stop, ok bool) {
    pi, di := -1, -1
    for i, st := range s {
        if st.StationID == from && pi < 0 {
            pi = i
        }
        if st.StationID == to {
            di = i
        }
    }
    if pi < 0 || di < 0 || s[pi].Order >= s[di].Order {
        return Stop{}, Stop{}, false
    }
    return s[pi], s[di], true
}
