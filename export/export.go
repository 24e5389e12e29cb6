// Package export writes catalog snapshots in other formats and computes
// statistics over them. It only reads books; it never changes the catalog.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	jsoniter "github.com/json-iterator/go"

	"library-catalog/library"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts json, yaml/yml and csv in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Row is one exported book with its fine computed at the export time.
type Row struct {
	library.Book `yaml:",inline"`
	OverdueDays  float64 `json:"overdue_days" yaml:"overdue_days"`
	Fine         float64 `json:"fine" yaml:"fine"`
}

// Document is the top-level exported value.
type Document struct {
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	Stats      Stats     `json:"stats" yaml:"stats"`
	Books      []Row     `json:"books" yaml:"books"`
}

// Rows pairs each book with its overdue days and fine at now, rounded to one decimal.
func Rows(books []library.Book, now time.Time) []Row {
	rows := make([]Row, 0, len(books))
	for _, b := range books {
		rows = append(rows, Row{
			Book:        b,
			OverdueDays: library.RoundTenth(library.OverdueDays(b, now)),
			Fine:        library.RoundTenth(library.CalculateFine(b, now)),
		})
	}
	return rows
}

// Write encodes books to w in the given format.
func Write(w io.Writer, format Format, books []library.Book, now time.Time) error {
	switch format {
	case FormatJSON:
		return JSON(w, books, now)
	case FormatYAML:
		return YAML(w, books, now)
	case FormatCSV:
		return CSV(w, books, now)
	}
	return fmt.Errorf("unknown export format %q", format)
}

func document(books []library.Book, now time.Time) Document {
	return Document{ExportedAt: now, Stats: ComputeStats(books, now), Books: Rows(books, now)}
}

// JSON writes an indented JSON document.
func JSON(w io.Writer, books []library.Book, now time.Time) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document(books, now)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// YAML writes a YAML document.
func YAML(w io.Writer, books []library.Book, now time.Time) error {
	data, err := yaml.Marshal(document(books, now))
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}

var csvHeader = []string{"id", "title", "author", "isbn", "year", "issued", "borrower", "issue_time", "due_time", "overdue_days", "fine"}

// CSV writes one row per book with a header line. Times are RFC 3339, empty when unset.
func CSV(w io.Writer, books []library.Book, now time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range Rows(books, now) {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.Title,
			r.Author,
			r.ISBN,
			strconv.Itoa(r.Year),
			strconv.FormatBool(r.Issued),
			r.Borrower,
			formatTime(r.IssueTime),
			formatTime(r.DueTime),
			strconv.FormatFloat(r.OverdueDays, 'f', 1, 64),
			strconv.FormatFloat(r.Fine, 'f', 1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
