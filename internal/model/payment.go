package model

import "time"

// Payment statuses as reported by the payment gateway callback.
const (
    PaymentPending = "pending"
    PaymentSuccess = "success"
    PaymentFailed  = "failed"
)

// Payment is a gateway charge attempt for a booking.  A successful
// payment flips its booking to paid in the same transaction.
type Payment struct {
    ID        uint64     `json:"id"`                // payments.id
    BookingID uint64     `json:"booking_id"`        // payments.booking_id
    Amount    int64      `json:"amount"`            // payments.amount
    Method    string     `json:"method"`            // payments.method
    Status    string     `json:"status"`            // payments.status
    PaidAt    *time.Time `json:"paid_at,omitempty"` // payments.paid_at (nullable)
}
