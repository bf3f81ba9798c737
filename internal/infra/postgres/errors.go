package postgres

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/lib/pq"
)

// Kind classifies a database failure so callers can decide how to react
// without inspecting error text.
type Kind int

const (
	// KindQuery covers everything that is not a connection or constraint
	// problem: malformed SQL, type mismatches, cancelled contexts.
	KindQuery Kind = iota

	// KindConnection marks transient connectivity failures. These are the
	// only errors the retry policy will re-attempt.
	KindConnection

	// KindConstraint marks integrity violations such as a duplicate
	// dedupe key or username. Never retried.
	KindConstraint
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindConstraint:
		return "constraint"
	default:
		return "query"
	}
}

// Error wraps a database failure with its classified Kind and the operation
// that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify wraps err into an *Error carrying the operation name and the
// detected Kind. A nil err returns nil.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kindOf(err), Op: op, Err: err}
}

// kindOf maps driver, network, and PostgreSQL error shapes onto a Kind.
// Connection class 08, server-shutdown codes 57P01..57P03, and the usual
// socket-level failures count as connection errors; integrity class 23 is a
// constraint violation; everything else is a query error.
func kindOf(err error) Kind {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08":
			return KindConnection
		case pqErr.Code == "57P01" || pqErr.Code == "57P02" || pqErr.Code == "57P03":
			return KindConnection
		case pqErr.Code.Class() == "23":
			return KindConstraint
		default:
			return KindQuery
		}
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindConnection
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return KindConnection
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return KindConnection
	}

	return KindQuery
}

// IsConnection reports whether err is a classified connection failure.
func IsConnection(err error) bool {
	var dbErr *Error
	return errors.As(err, &dbErr) && dbErr.Kind == KindConnection
}

// IsConstraint reports whether err is a classified integrity violation.
func IsConstraint(err error) bool {
	var dbErr *Error
	return errors.As(err, &dbErr) && dbErr.Kind == KindConstraint
}
