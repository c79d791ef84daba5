package model

// Bus is a vehicle owned by an operator.  SeatCount is the hard ceiling
// on active bookings for every trip the bus is assigned to.
type Bus struct {
    ID          uint64 `json:"id"`           // buses.id
    OperatorID  uint64 `json:"operator_id"`  // buses.operator_id
    PlateNumber string `json:"plate_number"` // buses.plate_number
    BusType     string `json:"bus_type"`     // buses.bus_type
    SeatCount   int    `json:"seat_count"`   // buses.seat_count
}
