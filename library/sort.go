package library

import (
	"cmp"
	"fmt"
	"strings"
)

// Comparator orders two books. It returns a negative number when a sorts
// before b, zero when they are equal on the key, and a positive number otherwise.
type Comparator func(a, b Book) int

// SortKey selects a built-in comparator.
type SortKey string

const (
	SortByTitle  SortKey = "title"
	SortByAuthor SortKey = "author"
	SortByYear   SortKey = "year"
	SortByID     SortKey = "id"
)

// ByTitle compares titles case-insensitively.
func ByTitle(a, b Book) int { return strings.Compare(FoldKey(a.Title), FoldKey(b.Title)) }

// ByAuthor compares authors case-insensitively.
func ByAuthor(a, b Book) int { return strings.Compare(FoldKey(a.Author), FoldKey(b.Author)) }

// ByYear compares publication years.
func ByYear(a, b Book) int { return cmp.Compare(a.Year, b.Year) }

// ByID compares ids, restoring insertion order.
func ByID(a, b Book) int { return cmp.Compare(a.ID, b.ID) }

// Comparator returns the comparator for k.
func (k SortKey) Comparator() (Comparator, error) {
	switch k {
	case SortByTitle:
		return ByTitle, nil
	case SortByAuthor:
		return ByAuthor, nil
	case SortByYear:
		return ByYear, nil
	case SortByID:
		return ByID, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSortKey, string(k))
}

// MergeSort returns a sorted copy of books. The sort is stable: books that
// compare equal keep their relative order.
func MergeSort(books []Book, compare Comparator) []Book {
	out := make([]Book, len(books))
	copy(out, books)
	if len(out) < 2 {
		return out
	}
	mergeSort(out, make([]Book, len(out)), compare)
	return out
}

func mergeSort(s, buf []Book, compare Comparator) {
	if len(s) < 2 {
		return
	}
	mid := len(s) / 2
	mergeSort(s[:mid], buf[:mid], compare)
	mergeSort(s[mid:], buf[mid:], compare)

	copy(buf, s)
	left, right := buf[:mid], buf[mid:len(s)]
	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		// Take from the right only when strictly smaller; ties keep left first.
		if compare(right[j], left[i]) < 0 {
			s[k] = right[j]
			j++
		} else {
			s[k] = left[i]
			i++
		}
		k++
	}
	k += copy(s[k:], left[i:])
	copy(s[k:], right[j:])
}

// Sort reorders the catalog by key. It reports false, without error, when
// there are fewer than two books and nothing was done.
func (c *Catalog) Sort(key SortKey) (bool, error) {
	compare, err := key.Comparator()
	if err != nil {
		return false, err
	}
	if len(c.books) < 2 {
		return false, nil
	}
	sorted := MergeSort(c.Snapshot(), compare)
	for i := range sorted {
		c.books[i] = c.byID[sorted[i].ID]
	}
	return true, nil
}
