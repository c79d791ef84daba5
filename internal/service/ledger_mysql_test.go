package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// singleConnLedger wires a Ledger to MySQL repositories sharing a pool of
// one connection, so any query issued while a transaction is open would
// block until the context expires.
func singleConnLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	stops := NewStopGraph(repository.NewRouteRepo(db), 16, time.Minute)
	return NewLedger(repository.NewLedgerStore(db), nil, stops, nil, 1).WithClock(fixedClock), mock
}

func expectRoute(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT route_id FROM trips WHERE id = \\?").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"route_id"}).AddRow(3))
	mock.ExpectQuery("FROM routes r JOIN bus_stations s1").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"s1.id", "s1.name", "s1.address", "s1.lat", "s1.lng",
			"s2.id", "s2.name", "s2.address", "s2.lat", "s2.lng"}).
			AddRow(hanoi, "Giáp Bát", "Giải Phóng", 20.98, 105.84, saigon, "Miền Đông", "Đinh Bộ Lĩnh", 10.81, 106.71))
	mock.ExpectQuery("FROM route_stops rs").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"station_id", "name", "address", "lat", "lng", "stop_order", "arr", "dep"}).
			AddRow(stopX, "Vinh", "Lê Lợi", 18.68, 105.68, 3, "12:00", "12:15"))
}

func lockedTrip(seats int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "route_id", "status", "price", "seat_count"}).
		AddRow(1, 3, model.TripScheduled, 450000, seats)
}

func TestLedgerCreateOnSingleConnectionPool(t *testing.T) {
	l, mock := singleConnLedger(t)
	expectRoute(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips t .* FOR UPDATE").WithArgs(1).WillReturnRows(lockedTrip(2))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bookings").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(11, 1, hanoi, stopX, model.BookingPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := l.Create(ctx, 11, CreateBookingInput{TripID: 1, PickupStationID: hanoi, DropoffStationID: stopX})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.ID != 42 || b.Status != model.BookingPending {
		t.Fatalf("booking = %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLedgerCreateSoldOutRollsBack(t *testing.T) {
	l, mock := singleConnLedger(t)
	expectRoute(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips t .* FOR UPDATE").WithArgs(1).WillReturnRows(lockedTrip(2))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bookings").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := l.Create(ctx, 11, CreateBookingInput{TripID: 1, PickupStationID: hanoi, DropoffStationID: saigon})
	if !errors.Is(err, ErrSoldOut) || !IsConflict(err) {
		t.Fatalf("expected sold out conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLedgerCreateUnreachableNeverLocks(t *testing.T) {
	l, mock := singleConnLedger(t)
	expectRoute(mock)

	_, err := l.Create(context.Background(), 11, CreateBookingInput{TripID: 1, PickupStationID: saigon, DropoffStationID: hanoi})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLedgerCreateMissingTrip(t *testing.T) {
	l, mock := singleConnLedger(t)
	mock.ExpectQuery("SELECT route_id FROM trips").WithArgs(404).WillReturnError(sql.ErrNoRows)

	_, err := l.Create(context.Background(), 11, CreateBookingInput{TripID: 404, PickupStationID: hanoi, DropoffStationID: saigon})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
