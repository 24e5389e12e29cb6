package library

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Issue lends b to borrower for the given number of whole days starting at now.
func (b *Book) Issue(borrower string, days int, now time.Time) error {
	if b.Issued {
		return &AlreadyIssuedError{ID: b.ID, Borrower: b.Borrower, Due: b.DueTime}
	}
	borrower = strings.TrimSpace(borrower)
	if borrower == "" {
		return ErrInvalidBorrower
	}
	if err := checkText("borrower", borrower); err != nil {
		return err
	}
	if days < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, days)
	}

	now = now.Truncate(time.Second).UTC()
	b.Issued = true
	b.Borrower = borrower
	b.IssueTime = now
	b.DueTime = now.Add(time.Duration(days) * secondsPerDay * time.Second)
	return nil
}

// Return ends the loan and reports any overdue fine.
func (b *Book) Return(now time.Time) (ReturnReceipt, error) {
	if !b.Issued {
		return ReturnReceipt{}, fmt.Errorf("%w: id %d", ErrNotIssued, b.ID)
	}
	receipt := ReturnReceipt{
		BookID:      b.ID,
		Title:       b.Title,
		Borrower:    b.Borrower,
		OverdueDays: OverdueDays(*b, now),
		Fine:        CalculateFine(*b, now),
		ReturnedAt:  now,
	}
	b.Issued = false
	b.Borrower = ""
	b.IssueTime = time.Time{}
	b.DueTime = time.Time{}
	return receipt, nil
}

// OverdueDays is the fractional number of days b is past due at now, or 0.
func OverdueDays(b Book, now time.Time) float64 {
	if !b.Issued || !now.After(b.DueTime) {
		return 0
	}
	return now.Sub(b.DueTime).Seconds() / secondsPerDay
}

// CalculateFine is the fine owed for b at now. It does not modify b.
func CalculateFine(b Book, now time.Time) float64 {
	return OverdueDays(b, now) * FinePerDay
}

// RoundTenth rounds v to one decimal place for display.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// Issue lends the book with the given id.
func (c *Catalog) Issue(id int64, borrower string, days int, now time.Time) error {
	b, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return b.Issue(borrower, days, now)
}

// Return ends the loan of the book with the given id.
func (c *Catalog) Return(id int64, now time.Time) (ReturnReceipt, error) {
	b, ok := c.byID[id]
	if !ok {
		return ReturnReceipt{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return b.Return(now)
}
