package export

import (
	"time"

	"library-catalog/library"
)

// Stats summarizes a catalog snapshot.
type Stats struct {
	Total        int     `json:"total" yaml:"total"`
	Available    int     `json:"available" yaml:"available"`
	Issued       int     `json:"issued" yaml:"issued"`
	Overdue      int     `json:"overdue" yaml:"overdue"`
	TotalFines   float64 `json:"total_fines" yaml:"total_fines"`
	Authors      int     `json:"authors" yaml:"authors"`
	OldestYear   int     `json:"oldest_year,omitempty" yaml:"oldest_year,omitempty"`
	NewestYear   int     `json:"newest_year,omitempty" yaml:"newest_year,omitempty"`
	MostOverdue  int64   `json:"most_overdue_id,omitempty" yaml:"most_overdue_id,omitempty"`
	LongestDelay float64 `json:"longest_overdue_days,omitempty" yaml:"longest_overdue_days,omitempty"`
}

// ComputeStats counts books by state and sums fines outstanding at now.
// Years of 0 are treated as unknown.
func ComputeStats(books []library.Book, now time.Time) Stats {
	var s Stats
	authors := make(map[string]struct{})
	for _, b := range books {
		s.Total++
		authors[library.FoldKey(b.Author)] = struct{}{}

		if b.Year > 0 {
			if s.OldestYear == 0 || b.Year < s.OldestYear {
				s.OldestYear = b.Year
			}
			s.NewestYear = max(s.NewestYear, b.Year)
		}

		if !b.Issued {
			s.Available++
			continue
		}
		s.Issued++
		if days := library.OverdueDays(b, now); days > 0 {
			s.Overdue++
			s.TotalFines += library.CalculateFine(b, now)
			if days > s.LongestDelay {
				s.LongestDelay = days
				s.MostOverdue = b.ID
			}
		}
	}
	s.Authors = len(authors)
	s.TotalFines = library.RoundTenth(s.TotalFines)
	s.LongestDelay = library.RoundTenth(s.LongestDelay)
	return s
}
