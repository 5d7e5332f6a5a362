package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Error kinds. Every store failure is an *OpError whose Kind is one of these.
var (
	ErrConnectivity     = errors.New("database unreachable")
	ErrWriteRejected    = errors.New("write rejected by constraint")
	ErrModeMismatch     = errors.New("session mode does not match store mode")
	ErrIdentityAssigned = errors.New("identity field must be empty on a new entity")
	ErrUnknownAttribute = errors.New("unknown filter attribute")
	ErrInvalidEntity    = errors.New("invalid entity")
	ErrSessionClosed    = errors.New("session already released")
	ErrSessionAborted   = errors.New("session rolled back after a failed operation")
	ErrQueryFailed      = errors.New("query failed")
	ErrInvalidURL       = errors.New("invalid connection url")
)

// OpError describes a failed store operation.
type OpError struct {
	Op     string // fetch_one, fetch_many, save, save_many, acquire
	Entity string // Go type name of the target entity, if known
	Filter Filter // filter of a read, nil for writes
	Values any    // entity values of a write, nil for reads
	Kind   error
	Err    error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Entity != "" {
		b.WriteString(" ")
		b.WriteString(e.Entity)
	}
	if len(e.Filter) > 0 {
		fmt.Fprintf(&b, " %v", map[string]any(e.Filter))
	}
	b.WriteString(": ")
	switch {
	case e.Err == nil || e.Err == e.Kind:
		b.WriteString(e.Kind.Error())
	case errors.Is(e.Err, e.Kind):
		// Err already spells out the kind.
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.Error())
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil || e.Err == e.Kind {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether err is a connectivity failure the caller may retry
// with a fresh session.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

// IsWriteRejected reports whether err is a constraint or integrity violation.
func IsWriteRejected(err error) bool {
	return errors.Is(err, ErrWriteRejected)
}

// classify maps a driver or gorm error onto an error kind.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case isKind(err):
		return kindOf(err)
	case isConnectivity(err):
		return ErrConnectivity
	case isConstraint(err):
		return ErrWriteRejected
	default:
		return ErrQueryFailed
	}
}

var kinds = []error{
	ErrConnectivity, ErrWriteRejected, ErrModeMismatch, ErrIdentityAssigned,
	ErrUnknownAttribute, ErrInvalidEntity, ErrSessionClosed, ErrSessionAborted,
	ErrQueryFailed,
}

func isKind(err error) bool { return kindOf(err) != nil }

func kindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func isConnectivity(err error) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, gomysql.ErrInvalidConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 53: insufficient resources, 57P01: admin shutdown
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "53") || pgErr.Code == "57P01"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked || liteErr.Code == sqlite3.ErrCantOpen
	}
	return false
}

func isConstraint(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 23: integrity constraint violation
		return strings.HasPrefix(pgErr.Code, "23")
	}

	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1048, 1062, 1216, 1217, 1364, 1451, 1452, 3819:
			return true
		}
	}
	return false
}

// opError builds the error returned to callers. The original error is kept in
// the chain so callers can still inspect driver details.
func opError(op string, target any, filter Filter, values any, err error) error {
	var existing *OpError
	if errors.As(err, &existing) {
		return err
	}
	return &OpError{
		Op:     op,
		Entity: typeName(target),
		Filter: filter,
		Values: values,
		Kind:   classify(err),
		Err:    err,
	}
}
