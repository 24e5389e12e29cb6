package library

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for catalog operations. Typed errors below match them via errors.Is.
var (
	ErrDuplicateTitle     = errors.New("duplicate title")
	ErrDuplicateISBN      = errors.New("duplicate isbn")
	ErrNotFound           = errors.New("book not found")
	ErrRecordIssued       = errors.New("book is currently issued")
	ErrAlreadyIssued      = errors.New("book already issued")
	ErrNotIssued          = errors.New("book is not issued")
	ErrInvalidBorrower    = errors.New("borrower name cannot be empty")
	ErrInvalidDuration    = errors.New("loan duration must be at least one day")
	ErrInvalidISBN        = errors.New("invalid isbn")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnknownSortKey     = errors.New("unknown sort key")
	ErrIO                 = errors.New("i/o error")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrUnsupportedVersion = errors.New("unsupported file version")
	ErrClosed             = errors.New("library is closed")
)

// RecordIssuedError is returned when removing a book that is lent out.
type RecordIssuedError struct {
	ID       int64
	Borrower string
}

func (e *RecordIssuedError) Error() string {
	return fmt.Sprintf("cannot remove book %d: it is currently issued to %s", e.ID, e.Borrower)
}

func (e *RecordIssuedError) Is(target error) bool { return target == ErrRecordIssued }

// AlreadyIssuedError is returned when issuing a book that is lent out.
type AlreadyIssuedError struct {
	ID       int64
	Borrower string
	Due      time.Time
}

func (e *AlreadyIssuedError) Error() string {
	return fmt.Sprintf("book %d is already issued to %s (due %s)", e.ID, e.Borrower, e.Due.Format(time.DateOnly))
}

func (e *AlreadyIssuedError) Is(target error) bool { return target == ErrAlreadyIssued }

// IOError wraps a failure reading or writing the catalog file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// MalformedRecordError describes a catalog line that could not be loaded.
// Load logs and skips these; they never abort a load.
type MalformedRecordError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: malformed record: %s", e.Line, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }
