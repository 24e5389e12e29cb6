package library

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

const day = 24 * time.Hour

func TestIssueSetsLoan(t *testing.T) {
	b := Book{ID: 1, Title: "Dune"}
	require.NoError(t, b.Issue("  Alice ", 14, t0.Add(750*time.Millisecond)))

	assert.True(t, b.Issued)
	assert.False(t, b.Available())
	assert.Equal(t, "Alice", b.Borrower)
	assert.Equal(t, t0, b.IssueTime)
	assert.Equal(t, t0.Add(14*day), b.DueTime)
}

func TestIssueRejections(t *testing.T) {
	tests := []struct {
		name     string
		borrower string
		days     int
		want     error
	}{
		{name: "empty borrower", borrower: "", days: 14, want: ErrInvalidBorrower},
		{name: "blank borrower", borrower: "   ", days: 14, want: ErrInvalidBorrower},
		{name: "separator in borrower", borrower: "Al|ice", days: 14, want: ErrInvalidInput},
		{name: "zero days", borrower: "Alice", days: 0, want: ErrInvalidDuration},
		{name: "negative days", borrower: "Alice", days: -3, want: ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Book{ID: 1, Title: "Dune"}
			err := b.Issue(tt.borrower, tt.days, t0)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, b.Issued)
			assert.Empty(t, b.Borrower)
		})
	}
}

func TestIssueAlreadyIssued(t *testing.T) {
	b := Book{ID: 7, Title: "Dune"}
	require.NoError(t, b.Issue("Alice", 14, t0))

	err := b.Issue("Bob", 7, t0.Add(day))
	require.ErrorIs(t, err, ErrAlreadyIssued)
	var already *AlreadyIssuedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, "Alice", already.Borrower)
	assert.Equal(t, t0.Add(14*day), already.Due)
	assert.Equal(t, "Alice", b.Borrower)
}

func TestReturnOverdueFine(t *testing.T) {
	b := Book{ID: 1, Title: "Dune", Author: "Frank Herbert"}
	require.NoError(t, b.Issue("Alice", 14, t0))

	receipt, err := b.Return(t0.Add(20 * day))
	require.NoError(t, err)
	assert.Equal(t, int64(1), receipt.BookID)
	assert.Equal(t, "Alice", receipt.Borrower)
	assert.InDelta(t, 6.0, receipt.OverdueDays, 1e-9)
	assert.InDelta(t, 30.0, receipt.Fine, 1e-9)

	assert.False(t, b.Issued)
	assert.Empty(t, b.Borrower)
	assert.True(t, b.IssueTime.IsZero())
	assert.True(t, b.DueTime.IsZero())
}

func TestReturnOnTimeNoFine(t *testing.T) {
	b := Book{ID: 1, Title: "Dune"}
	require.NoError(t, b.Issue("Alice", 14, t0))

	receipt, err := b.Return(t0.Add(14 * day))
	require.NoError(t, err)
	assert.Zero(t, receipt.OverdueDays)
	assert.Zero(t, receipt.Fine)
}

func TestReturnNotIssued(t *testing.T) {
	b := Book{ID: 3, Title: "Dune"}
	_, err := b.Return(t0)
	assert.ErrorIs(t, err, ErrNotIssued)
}

func TestFineIsFractionalAndMonotonic(t *testing.T) {
	b := Book{ID: 1, Title: "Dune"}
	require.NoError(t, b.Issue("Alice", 1, t0))

	assert.Zero(t, CalculateFine(b, t0))
	assert.InDelta(t, 2.5, CalculateFine(b, t0.Add(day+12*time.Hour)), 1e-9)

	prev := 0.0
	for h := range 24 * 10 {
		fine := CalculateFine(b, t0.Add(time.Duration(h)*time.Hour))
		assert.GreaterOrEqual(t, fine, prev)
		prev = fine
	}
	// Computing the fine leaves the book untouched.
	assert.True(t, b.Issued)
}

func TestFineForAvailableBook(t *testing.T) {
	b := Book{ID: 1, Title: "Dune"}
	assert.Zero(t, OverdueDays(b, t0.Add(100*day)))
	assert.Zero(t, CalculateFine(b, t0.Add(100*day)))
}

func TestRoundTenth(t *testing.T) {
	assert.Equal(t, 30.0, RoundTenth(29.99))
	assert.Equal(t, 2.5, RoundTenth(2.5))
	assert.Equal(t, 0.1, RoundTenth(0.06))
}

func TestCatalogIssueReturnUnknownID(t *testing.T) {
	c := NewCatalog()
	assert.ErrorIs(t, c.Issue(5, "Alice", 14, t0), ErrNotFound)
	_, err := c.Return(5, t0)
	assert.ErrorIs(t, err, ErrNotFound)
}
