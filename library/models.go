package library

import (
	"time"

	"github.com/google/uuid"
)

// FinePerDay is the amount charged for each day a book is kept past its due date.
const FinePerDay = 5.0

// secondsPerDay is the loan and fine unit.
const secondsPerDay = 86400

// Book is one catalog entry together with its lending state.
// Issue and due times are the zero time.Time when the book is not issued.
type Book struct {
	ID        int64     `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Author    string    `json:"author" yaml:"author"`
	ISBN      string    `json:"isbn" yaml:"isbn"`
	Year      int       `json:"year" yaml:"year"`
	Issued    bool      `json:"issued" yaml:"issued"`
	Borrower  string    `json:"borrower,omitempty" yaml:"borrower,omitempty"`
	IssueTime time.Time `json:"issue_time" yaml:"issue_time"`
	DueTime   time.Time `json:"due_time" yaml:"due_time"`
}

// Available reports whether the book can be issued.
func (b Book) Available() bool { return !b.Issued }

// ReturnReceipt describes a completed return.
type ReturnReceipt struct {
	BookID      int64     `json:"book_id"`
	Title       string    `json:"title"`
	Borrower    string    `json:"borrower"`
	OverdueDays float64   `json:"overdue_days"`
	Fine        float64   `json:"fine"`
	ReturnedAt  time.Time `json:"returned_at"`
}

// Principal is the logged-in actor. Only admins may mutate the catalog.
type Principal struct {
	Username  string
	Admin     bool
	SessionID uuid.UUID
}

// EventKind names a catalog mutation.
type EventKind string

const (
	EventAdded    EventKind = "added"
	EventRemoved  EventKind = "removed"
	EventIssued   EventKind = "issued"
	EventReturned EventKind = "returned"
	EventSorted   EventKind = "sorted"
)

// Event is published to listeners after a successful mutation.
// Receipt is set for returns, SortKey for sorts.
type Event struct {
	Kind    EventKind
	Book    Book
	Receipt *ReturnReceipt
	SortKey SortKey
	Actor   *Principal
	At      time.Time
}

// Listener receives catalog events. Notify is called with the manager lock held
// and must not call back into the manager.
type Listener interface {
	Notify(Event)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(Event)

// Notify calls f(e).
func (f ListenerFunc) Notify(e Event) { f(e) }
