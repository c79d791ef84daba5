// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking ledger and the handlers to distinguish between different
// failure scenarios without inspecting SQL errors themselves.
package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a duplicate stop order on a route.
var ErrConflict = errors.New("conflict")

// Not-found sentinels, one per aggregate the core reads.
var (
	ErrStationNotFound = errors.New("station not found")
	ErrRouteNotFound   = errors.New("route not found")
	ErrTripNotFound    = errors.New("trip not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// MySQL server error numbers that signal a lost lock race.
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
	mysqlErrDuplicateEntry  = 1062
)

// IsLockConflict reports whether err is a deadlock or lock wait timeout.
// The whole transaction has been rolled back by the server and can be
// retried from the start.
func IsLockConflict(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout
	}
	return false
}

// IsTransient reports whether err is a connectivity or timeout failure
// talking to the store.  Such failures never leave a partial commit
// behind and may be retried by the client.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsLockConflict(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isDuplicate reports a unique-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}
