package executor

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrUnavailable marks errors caused by a store that cannot be reached.
var ErrUnavailable = errors.New("store unavailable")

// IsUnavailable reports whether err stems from lost connectivity to the store.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception.
		return pqErr.Code.Class() == "08"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// ER_ACCESS_DENIED_ERROR, ER_BAD_DB_ERROR
		return myErr.Number == 1045 || myErr.Number == 1049
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrNotADB:
			return true
		}
	}
	return false
}

// classify tags connectivity failures with ErrUnavailable and passes every
// other error through unchanged.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) || !IsUnavailable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
