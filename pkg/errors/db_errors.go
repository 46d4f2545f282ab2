// Package errors provides database error classification for replica health probes.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ErrorKind is the outcome class of a failed replica probe.
type ErrorKind int

const (
	// ErrorKindNone means the probe succeeded.
	ErrorKindNone ErrorKind = iota
	// ErrorKindTimeout means the round-trip did not finish within the probe timeout.
	ErrorKindTimeout
	// ErrorKindConnectionRefused means the replica actively refused or dropped the connection.
	ErrorKindConnectionRefused
	// ErrorKindAuthFailure means the replica rejected the configured credentials.
	ErrorKindAuthFailure
	// ErrorKindUnknown covers every other failure.
	ErrorKindUnknown
)

// String returns the wire name used in status payloads and alerts.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNone:
		return ""
	case ErrorKindTimeout:
		return "Timeout"
	case ErrorKindConnectionRefused:
		return "ConnectionRefused"
	case ErrorKindAuthFailure:
		return "AuthFailure"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognised names decode as ErrorKindUnknown.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "":
		*k = ErrorKindNone
	case "Timeout":
		*k = ErrorKindTimeout
	case "ConnectionRefused":
		*k = ErrorKindConnectionRefused
	case "AuthFailure":
		*k = ErrorKindAuthFailure
	default:
		*k = ErrorKindUnknown
	}
	return nil
}

// DatabaseError wraps a probe error with classification information.
type DatabaseError struct {
	Kind        ErrorKind
	OriginalErr error
	DriverCode  string // MySQL error number or PostgreSQL SQLSTATE, when available
	Message     string
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.DriverCode != "" {
		return fmt.Sprintf("%s (driver code %s): %v", e.Message, e.DriverCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// ClassifyProbeError classifies a replica ping error into the probe taxonomy.
//
// Classification order:
//   - context.Canceled → ErrorKindUnknown (the caller gave up, not the replica)
//   - context.DeadlineExceeded or a net.Error timeout → ErrorKindTimeout
//   - MySQL 1044/1045/1698 → ErrorKindAuthFailure
//   - PostgreSQL SQLSTATE class 28 → ErrorKindAuthFailure
//   - syscall.ECONNREFUSED / ECONNRESET / EPIPE → ErrorKindConnectionRefused
//   - message keywords (driver errors that lost their type) → matching kind
//   - anything else → ErrorKindUnknown
//
// Returns nil for a nil error.
func ClassifyProbeError(err error) *DatabaseError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &DatabaseError{Kind: ErrorKindUnknown, OriginalErr: err, Message: "probe canceled"}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &DatabaseError{Kind: ErrorKindTimeout, OriginalErr: err, Message: "probe timed out"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &DatabaseError{Kind: ErrorKindTimeout, OriginalErr: err, Message: "network timeout"}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return classifyMySQLError(err, mysqlErr)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifyPostgresError(err, pqErr)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return &DatabaseError{Kind: ErrorKindConnectionRefused, OriginalErr: err, Message: "connection refused"}
	}

	return classifyByMessage(err)
}

// KindOf is a shorthand returning only the classified kind.
func KindOf(err error) ErrorKind {
	dbErr := ClassifyProbeError(err)
	if dbErr == nil {
		return ErrorKindNone
	}
	return dbErr.Kind
}

func classifyMySQLError(err error, mysqlErr *mysql.MySQLError) *DatabaseError {
	code := fmt.Sprintf("%d", mysqlErr.Number)

	switch mysqlErr.Number {
	case 1044, // ER_DBACCESS_DENIED_ERROR
		1045, // ER_ACCESS_DENIED_ERROR
		1698: // ER_ACCESS_DENIED_NO_PASSWORD_ERROR
		return &DatabaseError{Kind: ErrorKindAuthFailure, OriginalErr: err, DriverCode: code, Message: "access denied"}

	case 1040, // ER_CON_COUNT_ERROR
		1129, // ER_HOST_IS_BLOCKED
		1130, // ER_HOST_NOT_PRIVILEGED
		1053: // ER_SERVER_SHUTDOWN
		return &DatabaseError{Kind: ErrorKindConnectionRefused, OriginalErr: err, DriverCode: code, Message: "connection rejected by server"}

	case 3024: // ER_QUERY_TIMEOUT
		return &DatabaseError{Kind: ErrorKindTimeout, OriginalErr: err, DriverCode: code, Message: "query timed out"}

	default:
		return &DatabaseError{Kind: ErrorKindUnknown, OriginalErr: err, DriverCode: code, Message: "MySQL error"}
	}
}

func classifyPostgresError(err error, pqErr *pq.Error) *DatabaseError {
	code := string(pqErr.Code)

	switch {
	case pqErr.Code.Class() == "28": // invalid_authorization_specification, invalid_password
		return &DatabaseError{Kind: ErrorKindAuthFailure, OriginalErr: err, DriverCode: code, Message: "authentication failed"}
	case pqErr.Code.Class() == "08", // connection_exception
		pqErr.Code == "53300", // too_many_connections
		pqErr.Code == "57P01", // admin_shutdown
		pqErr.Code == "57P03": // cannot_connect_now
		return &DatabaseError{Kind: ErrorKindConnectionRefused, OriginalErr: err, DriverCode: code, Message: "connection rejected by server"}
	case pqErr.Code == "57014": // query_canceled
		return &DatabaseError{Kind: ErrorKindTimeout, OriginalErr: err, DriverCode: code, Message: "query canceled"}
	default:
		return &DatabaseError{Kind: ErrorKindUnknown, OriginalErr: err, DriverCode: code, Message: "PostgreSQL error"}
	}
}

// classifyByMessage handles errors that reach us as plain strings,
// e.g. driver.ErrBadConn wrappers or errors formatted by gorm.
func classifyByMessage(err error) *DatabaseError {
	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "i/o timeout", "deadline exceeded", "timed out", "timeout"):
		return &DatabaseError{Kind: ErrorKindTimeout, OriginalErr: err, Message: "probe timed out"}
	case containsAny(msg, "access denied", "password authentication failed", "authentication failed"):
		return &DatabaseError{Kind: ErrorKindAuthFailure, OriginalErr: err, Message: "access denied"}
	case containsAny(msg, "connection refused", "connection reset", "broken pipe", "no such host", "can't connect", "bad connection", "invalid connection"):
		return &DatabaseError{Kind: ErrorKindConnectionRefused, OriginalErr: err, Message: "connection refused"}
	default:
		return &DatabaseError{Kind: ErrorKindUnknown, OriginalErr: err, Message: "unknown database error"}
	}
}

func containsAny(msg string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

// IsTimeout reports whether err classifies as a probe timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrorKindTimeout
}

// IsAuthFailure reports whether err classifies as rejected credentials.
func IsAuthFailure(err error) bool {
	return KindOf(err) == ErrorKindAuthFailure
}

// IsConnectionRefused reports whether err classifies as a refused connection.
func IsConnectionRefused(err error) bool {
	return KindOf(err) == ErrorKindConnectionRefused
}
