package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"library-catalog/auth"
	"library-catalog/export"
	"library-catalog/library"
	"library-catalog/logging"
)

const helpText = `Available commands:
  Books:       add, remove, list, show, search, sort [title|author|year|id]
  Circulation: issue, return
  Reports:     stats
  Session:     login, logout, whoami, save, help, exit`

// shell is one interactive session over the catalog.
type shell struct {
	ctx      context.Context
	app      *app
	mgr      *library.LibraryManager
	accounts *auth.Database
	authn    *auth.Authenticator

	in    io.Reader
	out   io.Writer
	reqs  chan<- struct{}
	lines <-chan string
	eof   bool

	user *library.Principal
}

func runShell(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	mgr, err := a.openManager(false)
	if err != nil {
		return err
	}
	defer mgr.Close()
	mgr.AddListener(logging.NewActivityLog(a.log))

	accounts, err := a.openAccounts()
	if err != nil {
		return err
	}
	defer accounts.Close()

	s := &shell{
		ctx:      ctx,
		app:      a,
		mgr:      mgr,
		accounts: accounts,
		authn:    auth.NewAuthenticator(accounts, a.cfg.MaxLoginAttempts, a.cfg.LockoutWindow, a.log),
		in:       in,
		out:      out,
	}
	done := make(chan struct{})
	defer close(done)
	s.reqs, s.lines = startReader(in, done)

	fmt.Fprintln(out, "=== Library Catalog ===")
	s.reportLoad(mgr.LoadReport())

	if err := s.bootstrap(); err != nil {
		return err
	}
	if !s.login() {
		return s.shutdown()
	}
	fmt.Fprintln(out, helpText)

	for {
		line, ok := s.ask("\n> ")
		if !ok {
			return s.shutdown()
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		switch cmd {
		case "add":
			s.handleAdd()
		case "remove":
			s.handleRemove()
		case "issue":
			s.handleIssue()
		case "return":
			s.handleReturn()
		case "list":
			s.handleList()
		case "show":
			s.handleShow()
		case "search":
			s.handleSearch(strings.Join(args, " "))
		case "sort":
			s.handleSort(args)
		case "stats":
			s.handleStats()
		case "save":
			if err := mgr.Save(); err != nil {
				fmt.Fprintf(out, "Error saving catalog: %v\n", err)
			} else {
				fmt.Fprintln(out, "Catalog saved.")
			}
		case "login":
			s.login()
		case "logout":
			s.user = nil
			fmt.Fprintln(out, "Logged out. Log in again to make changes.")
		case "whoami":
			s.handleWhoami()
		case "help":
			fmt.Fprintln(out, helpText)
		case "exit", "quit":
			return s.shutdown()
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' to see the available commands.")
		}
	}
}

// startReader scans lines from r on demand: one line per request.
// The lines channel is closed at end of input or once done is closed.
func startReader(r io.Reader, done <-chan struct{}) (chan<- struct{}, <-chan string) {
	reqs := make(chan struct{})
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for {
			select {
			case <-reqs:
			case <-done:
				return
			}
			if !sc.Scan() {
				return
			}
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()
	return reqs, lines
}

// ask prints prompt and waits for a line. It reports false at end of input
// or when the context is cancelled.
func (s *shell) ask(prompt string) (string, bool) {
	if s.eof {
		return "", false
	}
	fmt.Fprint(s.out, prompt)
	select {
	case s.reqs <- struct{}{}:
	case <-s.ctx.Done():
		return "", false
	}
	select {
	case line, ok := <-s.lines:
		if !ok {
			s.eof = true
			return "", false
		}
		return strings.TrimSpace(line), true
	case <-s.ctx.Done():
		return "", false
	}
}

// askPassword reads a password without echo when input is a terminal.
func (s *shell) askPassword(prompt string) (string, bool) {
	f, ok := s.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return s.ask(prompt)
	}
	fmt.Fprint(s.out, prompt)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(s.out) // Add newline after password input
	if err != nil {
		fmt.Fprintf(s.out, "Error reading password: %v\n", err)
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

func (s *shell) askID(prompt string) (int64, bool) {
	raw, ok := s.ask(prompt)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid book ID: %s\n", raw)
		return 0, false
	}
	return id, true
}

func (s *shell) shutdown() error {
	if s.ctx.Err() != nil {
		fmt.Fprintln(s.out, "\nInterrupted, saving catalog...")
	}
	if err := s.mgr.Shutdown(); err != nil {
		fmt.Fprintf(s.out, "Error saving catalog: %v\n", err)
		return err
	}
	fmt.Fprintln(s.out, "Catalog saved. Goodbye!")
	return nil
}

func (s *shell) reportLoad(r library.LoadReport) {
	if !r.Exists {
		fmt.Fprintln(s.out, "No existing catalog file found. Starting with an empty library.")
		return
	}
	fmt.Fprintf(s.out, "Loaded %d book(s) from %s.\n", r.Loaded, r.Path)
	if r.Legacy {
		fmt.Fprintln(s.out, "The file uses the old format; it will be upgraded on save.")
	}
	for _, bad := range r.Skipped {
		fmt.Fprintf(s.out, "Warning: skipped %v\n", bad)
	}
}

// ------------------ Session ------------------

// bootstrap creates the first admin account on a fresh install.
func (s *shell) bootstrap() error {
	n, err := s.accounts.CountAccounts()
	if err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if n > 0 {
		return nil
	}

	fmt.Fprintln(s.out, "No accounts exist yet. Create the administrator account.")
	for {
		name, ok := s.ask("Admin username: ")
		if !ok {
			return errors.New("setup cancelled")
		}
		pw, ok := s.askPassword("Password: ")
		if !ok {
			return errors.New("setup cancelled")
		}
		confirm, ok := s.askPassword("Confirm password: ")
		if !ok {
			return errors.New("setup cancelled")
		}
		if pw != confirm {
			fmt.Fprintln(s.out, "Passwords do not match.")
			continue
		}
		if _, err := s.accounts.CreateAccount(name, pw, true); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(s.out, "Created admin account '%s'.\n", name)
		return nil
	}
}

func (s *shell) login() bool {
	for {
		name, ok := s.ask("Username: ")
		if !ok {
			return false
		}
		pw, ok := s.askPassword("Password: ")
		if !ok {
			return false
		}
		p, err := s.authn.Login(name, pw)
		if err != nil {
			fmt.Fprintf(s.out, "Login failed: %v\n", err)
			continue
		}
		s.user = &p
		role := "reader"
		if p.Admin {
			role = "admin"
		}
		fmt.Fprintf(s.out, "Welcome, %s (%s).\n", p.Username, role)
		return true
	}
}

func (s *shell) handleWhoami() {
	if s.user == nil {
		fmt.Fprintln(s.out, "Not logged in.")
		return
	}
	fmt.Fprintf(s.out, "%s (admin: %t, session %s)\n", s.user.Username, s.user.Admin, s.user.SessionID)
}

// ------------------ Books ------------------

func (s *shell) handleAdd() {
	title, ok := s.ask("Title: ")
	if !ok {
		return
	}
	author, ok := s.ask("Author: ")
	if !ok {
		return
	}
	isbn, ok := s.ask("ISBN (optional): ")
	if !ok {
		return
	}
	yearStr, ok := s.ask("Year (optional): ")
	if !ok {
		return
	}
	year := 0
	if yearStr != "" {
		var err error
		if year, err = strconv.Atoi(yearStr); err != nil {
			fmt.Fprintf(s.out, "Invalid year: %s\n", yearStr)
			return
		}
	}

	id, err := s.mgr.AddBook(s.user, title, author, isbn, year)
	if err != nil {
		fmt.Fprintf(s.out, "Error adding book: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Book added successfully! Book ID: %d\n", id)
}

func (s *shell) handleRemove() {
	id, ok := s.askID("Book ID to remove: ")
	if !ok {
		return
	}
	b, err := s.mgr.RemoveBook(s.user, id)
	if err != nil {
		fmt.Fprintf(s.out, "Error removing book: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Book '%s' removed.\n", b.Title)
}

func (s *shell) handleList() {
	books := s.mgr.GetAllBooks()
	if len(books) == 0 {
		fmt.Fprintln(s.out, "No books in library.")
		return
	}
	s.printBooks(books)
	fmt.Fprintf(s.out, "Total books: %d\n", len(books))
}

func (s *shell) printBooks(books []library.Book) {
	fmt.Fprintf(s.out, "%-5s %-30s %-25s %-6s %-10s %-20s %s\n", "ID", "Title", "Author", "Year", "Status", "Issued To", "Due")
	fmt.Fprintln(s.out, strings.Repeat("-", 115))
	for _, b := range books {
		status, borrower, due := "Available", "-", "-"
		if b.Issued {
			status, borrower, due = "Issued", b.Borrower, b.DueTime.Local().Format(time.DateOnly)
		}
		year := "-"
		if b.Year > 0 {
			year = strconv.Itoa(b.Year)
		}
		fmt.Fprintf(s.out, "%-5d %-30s %-25s %-6s %-10s %-20s %s\n",
			b.ID,
			truncateString(b.Title, 30),
			truncateString(b.Author, 25),
			year,
			status,
			truncateString(borrower, 20),
			due)
	}
}

func (s *shell) handleShow() {
	id, ok := s.askID("Book ID: ")
	if !ok {
		return
	}
	b, err := s.mgr.GetBook(id)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "ID:       %d\nTitle:    %s\nAuthor:   %s\nISBN:     %s\nYear:     %d\n", b.ID, b.Title, b.Author, b.ISBN, b.Year)
	if !b.Issued {
		fmt.Fprintln(s.out, "Status:   Available")
		return
	}
	overdue, fine, _ := s.mgr.Fine(id)
	fmt.Fprintf(s.out, "Status:   Issued to %s\nIssued:   %s\nDue:      %s\n",
		b.Borrower, b.IssueTime.Local().Format(time.DateTime), b.DueTime.Local().Format(time.DateTime))
	if overdue > 0 {
		fmt.Fprintf(s.out, "Overdue:  %.1f day(s), fine so far %.1f\n", overdue, fine)
	}
}

func (s *shell) handleSearch(query string) {
	if query == "" {
		var ok bool
		if query, ok = s.ask("Query: "); !ok {
			return
		}
	}
	books := s.mgr.SearchBooks(query)
	if len(books) == 0 {
		fmt.Fprintf(s.out, "No books found matching '%s'.\n", query)
		return
	}
	fmt.Fprintf(s.out, "Found %d book(s) matching '%s':\n", len(books), query)
	s.printBooks(books)
}

func (s *shell) handleSort(args []string) {
	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		var ok bool
		if key, ok = s.ask("Sort by (title/author/year/id): "); !ok {
			return
		}
	}
	sorted, err := s.mgr.SortBooks(s.user, library.SortKey(strings.ToLower(key)))
	if err != nil {
		fmt.Fprintf(s.out, "Error sorting: %v\n", err)
		return
	}
	if !sorted {
		fmt.Fprintln(s.out, "Nothing to sort: the catalog has fewer than two books.")
		return
	}
	fmt.Fprintf(s.out, "Catalog sorted by %s.\n", key)
}

// ------------------ Circulation ------------------

func (s *shell) handleIssue() {
	id, ok := s.askID("Book ID to issue: ")
	if !ok {
		return
	}
	borrower, ok := s.ask("Borrower's name: ")
	if !ok {
		return
	}
	daysStr, ok := s.ask(fmt.Sprintf("Loan days [%d]: ", s.app.cfg.LoanDays))
	if !ok {
		return
	}
	days := s.app.cfg.LoanDays
	if daysStr != "" {
		var err error
		if days, err = strconv.Atoi(daysStr); err != nil {
			fmt.Fprintf(s.out, "Invalid number of days: %s\n", daysStr)
			return
		}
	}

	b, err := s.mgr.IssueBook(s.user, id, borrower, days)
	if err != nil {
		fmt.Fprintf(s.out, "Error issuing book: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Book '%s' issued to %s, due %s.\n", b.Title, b.Borrower, b.DueTime.Local().Format(time.DateOnly))
}

func (s *shell) handleReturn() {
	id, ok := s.askID("Book ID to return: ")
	if !ok {
		return
	}
	r, err := s.mgr.ReturnBook(s.user, id)
	if err != nil {
		fmt.Fprintf(s.out, "Error returning book: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Book '%s' returned by %s.\n", r.Title, r.Borrower)
	if r.Fine > 0 {
		fmt.Fprintf(s.out, "Returned %.1f day(s) late. Fine due: %.1f\n", r.OverdueDays, r.Fine)
	}
}

// ------------------ Reports ------------------

func (s *shell) handleStats() {
	printStats(s.out, export.ComputeStats(s.mgr.GetAllBooks(), s.mgr.Now()))
}

func printStats(w io.Writer, st export.Stats) {
	fmt.Fprintf(w, "Total books:     %d\n", st.Total)
	fmt.Fprintf(w, "Available:       %d\n", st.Available)
	fmt.Fprintf(w, "Issued:          %d\n", st.Issued)
	fmt.Fprintf(w, "Overdue:         %d\n", st.Overdue)
	fmt.Fprintf(w, "Fines due:       %.1f\n", st.TotalFines)
	fmt.Fprintf(w, "Distinct authors: %d\n", st.Authors)
	if st.OldestYear > 0 {
		fmt.Fprintf(w, "Years:           %d-%d\n", st.OldestYear, st.NewestYear)
	}
	if st.MostOverdue > 0 {
		fmt.Fprintf(w, "Most overdue:    book %d (%.1f days)\n", st.MostOverdue, st.LongestDelay)
	}
}

func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}
