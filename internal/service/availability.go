package service

import (
	"context"
	"errors"

	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// CapacityReader returns a trip's seat count and its active bookings.
type CapacityReader interface {
	Capacity(ctx context.Context, tripID uint64) (seatCount, active int, err error)
}

// Availability computes how many seats a trip can still sell.  Reads are
// point in time; nothing is held between a read and a later booking.
type Availability struct {
	trips CapacityReader
}

func NewAvailability(trips CapacityReader) *Availability {
	return &Availability{trips: trips}
}

// Remaining is seatCount minus active bookings, floored at zero.
func Remaining(seatCount, active int) int {
	if n := seatCount - active; n > 0 {
		return n
	}
	return 0
}

// Available returns the remaining seats of one trip.
func (a *Availability) Available(ctx context.Context, tripID uint64) (int, error) {
	if tripID == 0 {
		return 0, ValidationError{Field: "trip_id", Msg: "must be positive"}
	}
	seats, active, err := a.trips.Capacity(ctx, tripID)
	if errors.Is(err, repository.ErrTripNotFound) {
		return 0, NotFoundError{Resource: "trip", Err: err}
	}
	if err != nil {
		return 0, storeError("load trip capacity", err)
	}
	return Remaining(seats, active), nil
}

// storeError converts a store failure into an InternalError, marking it
// retryable when nothing could have been committed.
func storeError(msg string, err error) error {
	return InternalError{Msg: msg, Retryable: repository.IsTransient(err), Err: err}
}
