package logging

import (
	"github.com/rs/zerolog"

	"library-catalog/library"
)

// ActivityLog records every catalog change as a structured log line.
type ActivityLog struct {
	log zerolog.Logger
}

// NewActivityLog returns a listener writing to logger.
func NewActivityLog(logger zerolog.Logger) *ActivityLog {
	return &ActivityLog{log: logger.With().Str("component", "activity").Logger()}
}

// Notify implements library.Listener.
func (a *ActivityLog) Notify(e library.Event) {
	ev := a.log.Info().Str("event", string(e.Kind)).Time("at", e.At)
	if e.Actor != nil {
		ev = ev.Str("user", e.Actor.Username).Str("session", e.Actor.SessionID.String())
	}

	switch e.Kind {
	case library.EventSorted:
		ev = ev.Str("key", string(e.SortKey))
	case library.EventIssued:
		ev = ev.Int64("book_id", e.Book.ID).
			Str("title", e.Book.Title).
			Str("borrower", e.Book.Borrower).
			Time("due", e.Book.DueTime)
	case library.EventReturned:
		ev = ev.Int64("book_id", e.Book.ID).Str("title", e.Book.Title)
		if r := e.Receipt; r != nil {
			ev = ev.Str("borrower", r.Borrower).
				Float64("overdue_days", library.RoundTenth(r.OverdueDays)).
				Float64("fine", library.RoundTenth(r.Fine))
		}
	default:
		ev = ev.Int64("book_id", e.Book.ID).Str("title", e.Book.Title).Str("author", e.Book.Author)
	}
	ev.Msg("catalog changed")
}
