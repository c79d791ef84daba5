package model

import "time"

// Booking statuses.  Pending and paid bookings hold one seat of the trip;
// canceled and refunded bookings release it.
const (
    BookingPending  = "pending"
    BookingPaid     = "paid"
    BookingCanceled = "canceled"
    BookingRefunded = "refunded"
)

// ActiveBookingStatuses lists the statuses that consume trip capacity.
var ActiveBookingStatuses = []string{BookingPending, BookingPaid}

// Booking is one seat sold against a trip between a pickup and a dropoff
// station.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – traveler who owns the booking.
//  TripID           – trip the seat is sold on.
//  PickupStationID  – station the traveler boards at.
//  DropoffStationID – station the traveler leaves at.
//  Status           – pending, paid, canceled or refunded.
//  CreatedAt        – creation timestamp (UTC).
//  UpdatedAt        – last update timestamp (UTC).
type Booking struct {
    ID               uint64    `json:"id"`                 // bookings.id
    UserID           uint64    `json:"user_id"`            // bookings.user_id
    TripID           uint64    `json:"trip_id"`            // bookings.trip_id
    PickupStationID  uint64    `json:"pickup_station_id"`  // bookings.pickup_station_id
    DropoffStationID uint64    `json:"dropoff_station_id"` // bookings.dropoff_station_id
    Status           string    `json:"status"`             // bookings.status
    CreatedAt        time.Time `json:"created_at"`         // bookings.created_at
    UpdatedAt        time.Time `json:"updated_at"`         // bookings.updated_at
}

// Active reports whether the booking currently consumes a seat.
func (b Booking) Active() bool {
    return b.Status == BookingPending || b.Status == BookingPaid
}
