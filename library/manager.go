package library

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Options configures a LibraryManager.
type Options struct {
	// DataPath is the catalog file. Empty keeps the catalog in memory only.
	DataPath string
	// ValidateISBN rejects ISBNs that are not valid ISBN-10 or ISBN-13.
	ValidateISBN bool
	// Autosave writes the catalog after every successful mutation.
	Autosave bool
	Logger   zerolog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// LibraryManager is the façade every caller goes through. It checks
// permissions, validates input, serializes access to the catalog with one
// mutex and notifies listeners after each successful change.
type LibraryManager struct {
	mu        sync.Mutex
	catalog   *Catalog
	opts      Options
	log       zerolog.Logger
	now       func() time.Time
	validate  *validator.Validate
	listeners []Listener
	report    LoadReport
	dirty     bool
	closed    bool
}

type bookInput struct {
	Title  string `validate:"required,max=200"`
	Author string `validate:"required,max=200"`
	Year   int    `validate:"gte=0,lte=9999"`
}

// NewLibraryManager loads the catalog at opts.DataPath (a missing file starts
// an empty catalog) and returns a manager for it.
func NewLibraryManager(opts Options) (*LibraryManager, error) {
	lm := &LibraryManager{
		opts:     opts,
		log:      opts.Logger.With().Str("component", "library").Logger(),
		now:      opts.Clock,
		validate: validator.New(),
	}
	if lm.now == nil {
		lm.now = time.Now
	}

	if opts.DataPath == "" {
		lm.catalog = NewCatalog()
		return lm, nil
	}
	catalog, report, err := Load(opts.DataPath, lm.log)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	lm.catalog = catalog
	lm.report = report
	return lm, nil
}

// LoadReport returns what was found when the catalog was loaded.
func (lm *LibraryManager) LoadReport() LoadReport { return lm.report }

// AddListener registers l for catalog events.
func (lm *LibraryManager) AddListener(l Listener) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.listeners = append(lm.listeners, l)
}

// ------------------ Permission and validation ------------------

func requireAdmin(p *Principal, op string) error {
	if p == nil {
		return fmt.Errorf("%w: %s requires a logged-in user", ErrPermissionDenied, op)
	}
	if !p.Admin {
		return fmt.Errorf("%w: %s requires admin rights (user %s)", ErrPermissionDenied, op, p.Username)
	}
	return nil
}

func (lm *LibraryManager) checkBook(in bookInput, isbn string) error {
	if err := lm.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidInput, strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if lm.opts.ValidateISBN && isbn != "" {
		if err := lm.validate.Var(isbn, "isbn"); err != nil {
			return fmt.Errorf("%w: %q is not a valid ISBN-10 or ISBN-13", ErrInvalidISBN, isbn)
		}
	}
	return nil
}

// ------------------ Book helpers ------------------

// AddBook adds a book and returns its id.
func (lm *LibraryManager) AddBook(p *Principal, title, author, isbn string, year int) (int64, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := lm.usable(p, "add"); err != nil {
		return 0, err
	}

	title, author, isbn = strings.TrimSpace(title), strings.TrimSpace(author), strings.TrimSpace(isbn)
	if err := lm.checkBook(bookInput{Title: title, Author: author, Year: year}, isbn); err != nil {
		return 0, err
	}
	id, err := lm.catalog.Add(title, author, isbn, year)
	if err != nil {
		return 0, err
	}

	b, _ := lm.catalog.FindByID(id)
	lm.changed(Event{Kind: EventAdded, Book: b, Actor: p})
	return id, nil
}

// RemoveBook removes a book that is not currently issued.
func (lm *LibraryManager) RemoveBook(p *Principal, id int64) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := lm.usable(p, "remove"); err != nil {
		return Book{}, err
	}

	b, err := lm.catalog.Remove(id)
	if err != nil {
		return Book{}, err
	}
	lm.changed(Event{Kind: EventRemoved, Book: b, Actor: p})
	return b, nil
}

// IssueBook lends a book to borrower for the given number of days.
func (lm *LibraryManager) IssueBook(p *Principal, id int64, borrower string, days int) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := lm.usable(p, "issue"); err != nil {
		return Book{}, err
	}

	if err := lm.catalog.Issue(id, borrower, days, lm.now()); err != nil {
		return Book{}, err
	}
	b, _ := lm.catalog.FindByID(id)
	lm.changed(Event{Kind: EventIssued, Book: b, Actor: p})
	return b, nil
}

// ReturnBook ends a loan and returns the receipt with any fine owed.
func (lm *LibraryManager) ReturnBook(p *Principal, id int64) (ReturnReceipt, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := lm.usable(p, "return"); err != nil {
		return ReturnReceipt{}, err
	}

	receipt, err := lm.catalog.Return(id, lm.now())
	if err != nil {
		return ReturnReceipt{}, err
	}
	b, _ := lm.catalog.FindByID(id)
	lm.changed(Event{Kind: EventReturned, Book: b, Receipt: &receipt, Actor: p})
	return receipt, nil
}

// SortBooks reorders the catalog. It reports false when there was nothing to sort.
func (lm *LibraryManager) SortBooks(p *Principal, key SortKey) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.closed {
		return false, ErrClosed
	}

	sorted, err := lm.catalog.Sort(key)
	if err != nil || !sorted {
		return false, err
	}
	lm.changed(Event{Kind: EventSorted, SortKey: key, Actor: p})
	return true, nil
}

// ------------------ Lookups ------------------

// GetBook returns the book with the given id.
func (lm *LibraryManager) GetBook(id int64) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.closed {
		return Book{}, ErrClosed
	}
	b, ok := lm.catalog.FindByID(id)
	if !ok {
		return Book{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return b, nil
}

func (lm *LibraryManager) FindByTitle(title string) (Book, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.catalog.FindByTitle(strings.TrimSpace(title))
}

func (lm *LibraryManager) FindByISBN(isbn string) (Book, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.catalog.FindByISBN(strings.TrimSpace(isbn))
}

func (lm *LibraryManager) SearchBooks(q string) []Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.catalog.Search(q)
}

// GetAllBooks returns a snapshot of the catalog in its current order.
func (lm *LibraryManager) GetAllBooks() []Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.catalog.Snapshot()
}

// Fine reports the overdue days and fine currently owed on a book.
func (lm *LibraryManager) Fine(id int64) (overdueDays, fine float64, err error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.closed {
		return 0, 0, ErrClosed
	}
	b, ok := lm.catalog.FindByID(id)
	if !ok {
		return 0, 0, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	now := lm.now()
	return OverdueDays(b, now), CalculateFine(b, now), nil
}

// Now returns the manager's current time.
func (lm *LibraryManager) Now() time.Time { return lm.now() }

// ------------------ Persistence ------------------

// Save writes the catalog to the data file.
func (lm *LibraryManager) Save() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.closed {
		return ErrClosed
	}
	return lm.save()
}

func (lm *LibraryManager) save() error {
	if lm.opts.DataPath == "" {
		return nil
	}
	if err := Save(lm.opts.DataPath, lm.catalog); err != nil {
		return err
	}
	lm.dirty = false
	lm.log.Debug().Str("path", lm.opts.DataPath).Int("books", lm.catalog.Len()).Msg("catalog saved")
	return nil
}

// Dirty reports whether there are changes not yet written to the data file.
func (lm *LibraryManager) Dirty() bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.dirty
}

// Shutdown saves the catalog and releases it. Later calls are no-ops.
func (lm *LibraryManager) Shutdown() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.closed {
		return nil
	}
	if err := lm.save(); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	lm.closed = true
	lm.catalog = NewCatalog()
	lm.log.Info().Msg("library shut down")
	return nil
}

// Close is Shutdown for use with defer.
func (lm *LibraryManager) Close() error { return lm.Shutdown() }

// ------------------ internals ------------------

func (lm *LibraryManager) usable(p *Principal, op string) error {
	if lm.closed {
		return ErrClosed
	}
	return requireAdmin(p, op)
}

// changed marks the catalog dirty, notifies listeners and autosaves.
func (lm *LibraryManager) changed(e Event) {
	e.At = lm.now()
	lm.dirty = true
	for _, l := range lm.listeners {
		l.Notify(e)
	}
	if lm.opts.Autosave {
		if err := lm.save(); err != nil {
			lm.log.Error().Err(err).Msg("autosave failed, changes kept in memory")
		}
	}
}
