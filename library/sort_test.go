package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(books []Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestMergeSortStable(t *testing.T) {
	in := []Book{
		{ID: 1, Title: "b"},
		{ID: 2, Title: "a"},
		{ID: 3, Title: "a"},
	}
	got := MergeSort(in, ByTitle)

	ids := []int64{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []int64{2, 3, 1}, ids)
	// Input is not modified.
	assert.Equal(t, int64(1), in[0].ID)
}

func TestMergeSortStableLarge(t *testing.T) {
	var in []Book
	for i := range 100 {
		in = append(in, Book{ID: int64(i + 1), Year: 2000 + (i*7)%5})
	}
	got := MergeSort(in, ByYear)

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		require.LessOrEqual(t, prev.Year, cur.Year)
		if prev.Year == cur.Year {
			require.Less(t, prev.ID, cur.ID, "equal years must keep insertion order")
		}
	}
}

func TestMergeSortSmall(t *testing.T) {
	assert.Empty(t, MergeSort(nil, ByID))
	one := MergeSort([]Book{{ID: 9}}, ByID)
	assert.Len(t, one, 1)
}

func TestComparatorsFoldCase(t *testing.T) {
	assert.Zero(t, ByTitle(Book{Title: "DUNE"}, Book{Title: "dune"}))
	assert.Negative(t, ByAuthor(Book{Author: "austen"}, Book{Author: "Herbert"}))
	assert.Positive(t, ByYear(Book{Year: 1965}, Book{Year: 1815}))
}

func TestSortKeyComparator(t *testing.T) {
	for _, k := range []SortKey{SortByTitle, SortByAuthor, SortByYear, SortByID} {
		cmpFn, err := k.Comparator()
		require.NoError(t, err, k)
		assert.NotNil(t, cmpFn)
	}
	_, err := SortKey("isbn").Comparator()
	assert.ErrorIs(t, err, ErrUnknownSortKey)
}

func TestCatalogSort(t *testing.T) {
	c := NewCatalog()
	c.Add("Emma", "Jane Austen", "", 1815)
	c.Add("dune", "Frank Herbert", "", 1965)
	c.Add("Brave New World", "Aldous Huxley", "", 1932)

	done, err := c.Sort(SortByTitle)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"Brave New World", "dune", "Emma"}, titles(c.Snapshot()))

	done, err = c.Sort(SortByYear)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"Emma", "Brave New World", "dune"}, titles(c.Snapshot()))

	// Lookups still work after reordering.
	b, ok := c.FindByID(2)
	require.True(t, ok)
	assert.Equal(t, "dune", b.Title)

	_, err = c.Sort(SortByID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Emma", "dune", "Brave New World"}, titles(c.Snapshot()))
}

func TestCatalogSortNothingToDo(t *testing.T) {
	c := NewCatalog()
	done, err := c.Sort(SortByTitle)
	require.NoError(t, err)
	assert.False(t, done)

	c.Add("Only", "One", "", 0)
	done, err = c.Sort(SortByTitle)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestCatalogSortUnknownKey(t *testing.T) {
	c := NewCatalog()
	c.Add("A", "x", "", 0)
	c.Add("B", "x", "", 0)
	_, err := c.Sort("publisher")
	assert.ErrorIs(t, err, ErrUnknownSortKey)
	assert.Equal(t, []string{"A", "B"}, titles(c.Snapshot()))
}
