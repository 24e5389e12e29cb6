package library

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Catalog is the ordered collection of books. Order is insertion order until
// the catalog is sorted. Title and ISBN lookups go through indexes kept in step
// with the slice.
//
// A Catalog is not safe for concurrent use. Callers serialize access;
// LibraryManager does so with a single mutex.
type Catalog struct {
	books  []*Book
	byID   map[int64]*Book
	titles map[string]int64 // folded title -> id
	isbns  map[string]int64
	nextID int64
}

// NewCatalog returns an empty catalog whose first id is 1.
func NewCatalog() *Catalog {
	return &Catalog{
		byID:   make(map[int64]*Book),
		titles: make(map[string]int64),
		isbns:  make(map[string]int64),
		nextID: 1,
	}
}

// FoldKey is the case-folded form used to compare titles and authors.
func FoldKey(s string) string {
	return cases.Fold().String(s)
}

// Len returns the number of books in the catalog.
func (c *Catalog) Len() int { return len(c.books) }

// NextID returns the id the next added book will receive.
func (c *Catalog) NextID() int64 { return c.nextID }

// checkText rejects characters the catalog file cannot represent.
func checkText(field, value string) error {
	if strings.ContainsAny(value, "|\r\n") {
		return fmt.Errorf("%w: %s must not contain '|' or line breaks", ErrInvalidInput, field)
	}
	return nil
}

// Add appends a new book and returns its id.
func (c *Catalog) Add(title, author, isbn string, year int) (int64, error) {
	for _, f := range [][2]string{{"title", title}, {"author", author}, {"isbn", isbn}} {
		if err := checkText(f[0], f[1]); err != nil {
			return 0, err
		}
	}
	if err := c.checkUnique(title, isbn); err != nil {
		return 0, err
	}

	b := &Book{ID: c.nextID, Title: title, Author: author, ISBN: isbn, Year: year}
	c.attach(b)
	return b.ID, nil
}

func (c *Catalog) checkUnique(title, isbn string) error {
	if id, ok := c.titles[FoldKey(title)]; ok {
		return fmt.Errorf("%w: %q is already book %d", ErrDuplicateTitle, title, id)
	}
	if isbn != "" {
		if id, ok := c.isbns[isbn]; ok {
			return fmt.Errorf("%w: %s is already book %d", ErrDuplicateISBN, isbn, id)
		}
	}
	return nil
}

// insert places an already-identified book, as read from disk.
func (c *Catalog) insert(b Book) error {
	if _, ok := c.byID[b.ID]; ok {
		return fmt.Errorf("duplicate id %d", b.ID)
	}
	if err := c.checkUnique(b.Title, b.ISBN); err != nil {
		return err
	}
	c.attach(&b)
	return nil
}

func (c *Catalog) attach(b *Book) {
	c.books = append(c.books, b)
	c.byID[b.ID] = b
	c.titles[FoldKey(b.Title)] = b.ID
	if b.ISBN != "" {
		c.isbns[b.ISBN] = b.ID
	}
	if b.ID >= c.nextID {
		c.nextID = b.ID + 1
	}
}

// Remove detaches the book with the given id and returns its final state.
// Issued books cannot be removed.
func (c *Catalog) Remove(id int64) (Book, error) {
	b, ok := c.byID[id]
	if !ok {
		return Book{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if b.Issued {
		return Book{}, &RecordIssuedError{ID: id, Borrower: b.Borrower}
	}

	idx := slices.Index(c.books, b)
	c.books = slices.Delete(c.books, idx, idx+1)
	delete(c.byID, id)
	delete(c.titles, FoldKey(b.Title))
	if b.ISBN != "" {
		delete(c.isbns, b.ISBN)
	}
	return *b, nil
}

// FindByID returns a copy of the book with the given id.
func (c *Catalog) FindByID(id int64) (Book, bool) {
	b, ok := c.byID[id]
	if !ok {
		return Book{}, false
	}
	return *b, true
}

// FindByTitle matches the title case-insensitively.
func (c *Catalog) FindByTitle(title string) (Book, bool) {
	id, ok := c.titles[FoldKey(title)]
	if !ok {
		return Book{}, false
	}
	return c.FindByID(id)
}

// FindByISBN matches the ISBN exactly.
func (c *Catalog) FindByISBN(isbn string) (Book, bool) {
	if isbn == "" {
		return Book{}, false
	}
	id, ok := c.isbns[isbn]
	if !ok {
		return Book{}, false
	}
	return c.FindByID(id)
}

// Search returns every book whose title, author or ISBN contains query,
// ignoring case, in catalog order. A blank query matches nothing.
func (c *Catalog) Search(query string) []Book {
	results := []Book{}
	q := FoldKey(strings.TrimSpace(query))
	if q == "" {
		return results
	}
	for _, b := range c.books {
		if strings.Contains(FoldKey(b.Title), q) ||
			strings.Contains(FoldKey(b.Author), q) ||
			strings.Contains(FoldKey(b.ISBN), q) {
			results = append(results, *b)
		}
	}
	return results
}

// All iterates over copies of the books in catalog order.
func (c *Catalog) All() iter.Seq[Book] {
	return func(yield func(Book) bool) {
		for _, b := range c.books {
			if !yield(*b) {
				return
			}
		}
	}
}

// Snapshot returns copies of every book in catalog order.
func (c *Catalog) Snapshot() []Book {
	out := make([]Book, 0, len(c.books))
	for b := range c.All() {
		out = append(out, b)
	}
	return out
}
