package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		lock      bool
		transient bool
	}{
		{"nil", nil, false, false},
		{"deadlock", &mysql.MySQLError{Number: 1213}, true, true},
		{"wrapped lock wait", fmt.Errorf("lock trip: %w", &mysql.MySQLError{Number: 1205}), true, true},
		{"duplicate", &mysql.MySQLError{Number: 1062}, false, false},
		{"deadline", context.DeadlineExceeded, false, true},
		{"bad conn", driver.ErrBadConn, false, true},
		{"not found", ErrTripNotFound, false, false},
		{"plain", errors.New("syntax error"), false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsLockConflict(tc.err); got != tc.lock {
				t.Errorf("IsLockConflict = %v want %v", got, tc.lock)
			}
			if got := IsTransient(tc.err); got != tc.transient {
				t.Errorf("IsTransient = %v want %v", got, tc.transient)
			}
		})
	}
	if !isDuplicate(&mysql.MySQLError{Number: 1062}) {
		t.Error("isDuplicate(1062) = false")
	}
}
