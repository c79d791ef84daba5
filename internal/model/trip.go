package model

// Trip statuses.  Only scheduled trips are searchable and bookable.
const (
    TripScheduled = "scheduled"
    TripRunning   = "running"
    TripCanceled  = "canceled"
    TripFinished  = "finished"
)

// Trip is one dated, priced, bus-assigned run of a Route.  It inherits
// its stop topology from the route and its capacity from the bus.
//
// Fields:
//  ID            – primary key identifier.
//  RouteID       – route being driven.
//  BusID         – bus assigned to the trip.
//  DepartureDate – calendar date, "YYYY-MM-DD".
//  DepartureTime – time of day, "HH:MM".
//  Price         – ticket price in VND.
//  Status        – scheduled, running, canceled or finished.
type Trip struct {
    ID            uint64 `json:"id"`             // trips.id
    RouteID       uint64 `json:"route_id"`       // trips.route_id
    BusID         uint64 `json:"bus_id"`         // trips.bus_id
    DepartureDate string `json:"departure_date"` // trips.departure_date
    DepartureTime string `json:"departure_time"` // trips.departure_time
    Price         int64  `json:"price"`          // trips.price
    Status        string `json:"status"`         // trips.status
}
