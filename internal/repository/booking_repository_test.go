package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var bookingDetailColumns = []string{"id", "user_id", "trip_id", "status", "created_at",
	"p.id", "p.name", "p.address", "d.id", "d.name", "d.address",
	"departure_date", "departure_time", "price", "route_name", "plate_number"}

func TestBookingRepoListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	newer := time.Date(2025, 11, 30, 9, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	mock.ExpectQuery("WHERE bk.user_id = \\? ORDER BY bk.created_at DESC").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(bookingDetailColumns).
			AddRow(2, 7, 1, "pending", newer, 1, "Giáp Bát", "Giải Phóng", 9, "Miền Đông", "Đinh Bộ Lĩnh",
				"2025-12-01", "06:00", 450000, "Hà Nội - Sài Gòn", "29B-123.45").
			AddRow(1, 7, 1, "canceled", older, 1, "Giáp Bát", "Giải Phóng", 4, "Vinh", "Lê Lợi",
				"2025-12-01", "06:00", 450000, "Hà Nội - Sài Gòn", "29B-123.45"))

	out, err := NewBookingRepo(db).ListByUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(out) != 2 || out[0].ID != 2 || out[1].Dropoff.Name != "Vinh" {
		t.Fatalf("out = %+v", out)
	}
	if out[0].Pickup.Address != "Giải Phóng" || !out[0].CreatedAt.Equal(newer) {
		t.Fatalf("out[0] = %+v", out[0])
	}
}

func TestBookingRepoGetDetailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery("WHERE bk.id = \\?").WithArgs(3).WillReturnRows(sqlmock.NewRows(bookingDetailColumns))
	if _, err := NewBookingRepo(db).GetDetail(context.Background(), 3); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}
