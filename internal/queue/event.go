// Package queue carries booking lifecycle events over RabbitMQ.
package queue

// Event types published on the booking.events queue.
const (
    EventBookingCreated  = "booking.created"
    EventBookingCanceled = "booking.canceled"
    EventBookingPaid     = "booking.paid"
)

// BookingEvent is published after a ledger transaction commits.  It
// carries enough information for downstream consumers to log or notify
// without querying the primary database.
type BookingEvent struct {
    Type             string `json:"type"`
    BookingID        uint64 `json:"booking_id"`
    UserID           uint64 `json:"user_id"`
    TripID           uint64 `json:"trip_id"`
    PickupStationID  uint64 `json:"pickup_station_id"`
    DropoffStationID uint64 `json:"dropoff_station_id"`
    Status           string `json:"status"`
    Amount           int64  `json:"amount,omitempty"`
    OccurredAt       string `json:"occurred_at"`
}
