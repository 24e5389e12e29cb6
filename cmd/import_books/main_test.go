package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"library-catalog/library"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		title   string
		author  string
		isbn    string
		year    int
		wantErr bool
	}{
		{name: "full", line: "Dune|Frank Herbert|978-0-441-01359-3|1965", title: "Dune", author: "Frank Herbert", isbn: "9780441013593", year: 1965},
		{name: "title and author", line: "Emma | Jane Austen", title: "Emma", author: "Jane Austen"},
		{name: "tabs", line: "Emma\tJane Austen\t\t1815", title: "Emma", author: "Jane Austen", year: 1815},
		{name: "empty year", line: "Emma|Jane Austen|123|", title: "Emma", author: "Jane Austen", isbn: "123"},
		{name: "one field", line: "Just a title", wantErr: true},
		{name: "too many fields", line: "a|b|c|1|extra", wantErr: true},
		{name: "bad year", line: "a|b|c|soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, author, isbn, year, err := parseLine(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.line)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLine(%q): %v", tt.line, err)
			}
			if title != tt.title || author != tt.author || isbn != tt.isbn || year != tt.year {
				t.Fatalf("got (%q, %q, %q, %d)", title, author, isbn, year)
			}
		})
	}
}

func TestImportBooks(t *testing.T) {
	mgr, err := library.NewLibraryManager(library.Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	input := strings.Join([]string{
		"# title|author|isbn|year",
		"Dune|Frank Herbert|9780441013593|1965",
		"",
		"Emma|Jane Austen||1815",
		"DUNE|Someone|",
		"broken line",
		"Bad|Author|x|y",
	}, "\n")

	var out bytes.Buffer
	res, err := importBooks(mgr, strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 2 || res.Duplicates != 1 || res.Errors != 2 {
		t.Fatalf("unexpected result %+v\n%s", res, out.String())
	}
	if got := len(mgr.GetAllBooks()); got != 2 {
		t.Fatalf("want 2 books in catalog, got %d", got)
	}
	if !strings.Contains(out.String(), "SUCCESS (ID: 2)") {
		t.Fatalf("missing progress output:\n%s", out.String())
	}
}
