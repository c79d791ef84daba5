package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// Ticket renders the printable e-ticket of a booking.  The caller must
// own the booking (or be an admin) and the booking must still hold its
// seat.  It returns the PDF bytes and a suggested file name.
func (l *Ledger) Ticket(ctx context.Context, caller Caller, bookingID uint64) ([]byte, string, error) {
	if bookingID == 0 {
		return nil, "", ValidationError{Field: "booking_id", Msg: "must be positive"}
	}
	d, err := l.reader.GetDetail(ctx, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, "", NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return nil, "", storeError("load booking", err)
	}
	if d.UserID != caller.UserID && !caller.isAdmin() {
		return nil, "", ForbiddenError{Msg: "booking belongs to another user"}
	}
	if d.Status != model.BookingPending && d.Status != model.BookingPaid {
		return nil, "", ConflictError{Resource: "booking", Msg: "booking is " + d.Status}
	}
	body, err := buildTicketPDF(d)
	if err != nil {
		return nil, "", InternalError{Msg: "render ticket", Err: err}
	}
	return body, fmt.Sprintf("TICKET_%d.pdf", d.ID), nil
}

func buildTicketPDF(d *repository.BookingDetail) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking      : #%d", d.ID),
		fmt.Sprintf("Status       : %s", strings.ToUpper(d.Status)),
		fmt.Sprintf("Route        : %s", orDash(d.RouteName)),
		fmt.Sprintf("Departure    : %s %s", orDash(d.DepartureDate), orDash(d.DepartureTime)),
		fmt.Sprintf("Pickup       : %s, %s", orDash(d.Pickup.Name), orDash(d.Pickup.Address)),
		fmt.Sprintf("Dropoff      : %s, %s", orDash(d.Dropoff.Name), orDash(d.Dropoff.Address)),
		fmt.Sprintf("Bus          : %s", orDash(d.PlateNumber)),
		fmt.Sprintf("Price        : %d VND", d.Price),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, tr(s))
		pdf.Ln(7)
	}
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	note := "Valid for one passenger. Show this ticket when boarding."
	if d.Status == model.BookingPending {
		note = "Payment pending. This ticket is valid once the booking is paid."
	}
	pdf.MultiCell(0, 6, note, "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
