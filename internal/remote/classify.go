package remote

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"regexp"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Class is the failure taxonomy used by the retry policy. Only
// ClassDependencyNotReady is worth retrying: it means a parent row has
// not reached the remote store yet and backoff gives its own push time
// to land.
type Class string

const (
	ClassDependencyNotReady Class = "dependency_not_ready"
	ClassPermissionDenied   Class = "permission_denied"
	ClassSchemaMismatch     Class = "schema_mismatch"
	ClassNetworkUnavailable Class = "network_unavailable"
	ClassUnknown            Class = "unknown"
)

// SyncError is a remote-store failure with its classification and, for
// referential-integrity failures, the missing parent table if it could
// be extracted from the store's error detail.
type SyncError struct {
	Class Class
	Table string
	Err   error
}

func (e *SyncError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("remote %s (parent table %q): %v", e.Class, e.Table, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Class, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Retryable reports whether waiting and retrying can resolve the
// failure.
func (e *SyncError) Retryable() bool {
	return e.Class == ClassDependencyNotReady
}

// Postgres details a foreign-key violation as:
//
//	Key (project_id)=(abc) is not present in table "projects".
var pgFKDetailRe = regexp.MustCompile(`is not present in table "([^"]+)"`)

// MySQL names the parent table in the constraint clause:
//
//	... FOREIGN KEY (`project_id`) REFERENCES `projects` (`id`))
var mysqlFKRe = regexp.MustCompile("REFERENCES `([^`]+)`")

// Classify maps a remote-store error to its class. A nil error maps to
// nil; an already-classified error passes through unchanged.
func Classify(err error) *SyncError {
	if err == nil {
		return nil
	}

	var classified *SyncError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) {
		return &SyncError{Class: ClassNetworkUnavailable, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &SyncError{Class: ClassNetworkUnavailable, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &SyncError{Class: ClassNetworkUnavailable, Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPostgres(pgErr, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return classifyMySQL(myErr, err)
	}

	return &SyncError{Class: ClassUnknown, Err: err}
}

func classifyPostgres(pgErr *pgconn.PgError, err error) *SyncError {
	switch pgErr.Code {
	case "23503": // foreign_key_violation
		table := ""
		if m := pgFKDetailRe.FindStringSubmatch(pgErr.Detail); m != nil {
			table = m[1]
		}
		return &SyncError{Class: ClassDependencyNotReady, Table: table, Err: err}
	case "42501", "28000", "28P01": // insufficient_privilege, bad authorization
		return &SyncError{Class: ClassPermissionDenied, Err: err}
	case "42P01", "42703", "42804": // undefined table/column, datatype mismatch
		return &SyncError{Class: ClassSchemaMismatch, Err: err}
	default:
		return &SyncError{Class: ClassUnknown, Err: err}
	}
}

func classifyMySQL(myErr *mysql.MySQLError, err error) *SyncError {
	switch myErr.Number {
	case 1452: // foreign key constraint fails
		table := ""
		if m := mysqlFKRe.FindStringSubmatch(myErr.Message); m != nil {
			table = m[1]
		}
		return &SyncError{Class: ClassDependencyNotReady, Table: table, Err: err}
	case 1044, 1045, 1142, 1143: // access denied
		return &SyncError{Class: ClassPermissionDenied, Err: err}
	case 1054, 1146: // unknown column, table doesn't exist
		return &SyncError{Class: ClassSchemaMismatch, Err: err}
	default:
		return &SyncError{Class: ClassUnknown, Err: err}
	}
}
