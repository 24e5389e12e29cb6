package library

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// fieldCount is the number of pipe-separated fields in a full record line.
const fieldCount = 9

// EncodeRecord renders b as id|title|author|isbn|year|issued|borrower|issue_time|due_time.
func EncodeRecord(b Book) string {
	issued := "0"
	if b.Issued {
		issued = "1"
	}
	return strings.Join([]string{
		strconv.FormatInt(b.ID, 10),
		b.Title,
		b.Author,
		b.ISBN,
		strconv.Itoa(b.Year),
		issued,
		b.Borrower,
		strconv.FormatInt(epoch(b.IssueTime), 10),
		strconv.FormatInt(epoch(b.DueTime), 10),
	}, "|")
}

// DecodeRecord parses one record line. Missing trailing fields take their
// defaults; if any lending field is missing the book is treated as available.
func DecodeRecord(line string) (Book, error) {
	fields := strings.Split(line, "|")
	if len(fields) > fieldCount {
		return Book{}, fmt.Errorf("expected at most %d fields, got %d", fieldCount, len(fields))
	}

	var b Book
	id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil || id < 1 {
		return Book{}, fmt.Errorf("invalid id %q", fields[0])
	}
	b.ID = id

	if len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
		return Book{}, fmt.Errorf("missing title")
	}
	b.Title = fields[1]
	if len(fields) > 2 {
		b.Author = fields[2]
	}
	if len(fields) > 3 {
		b.ISBN = strings.TrimSpace(fields[3])
	}
	if len(fields) > 4 && strings.TrimSpace(fields[4]) != "" {
		if b.Year, err = strconv.Atoi(strings.TrimSpace(fields[4])); err != nil {
			return Book{}, fmt.Errorf("invalid year %q", fields[4])
		}
	}
	if len(fields) < fieldCount {
		return b, nil
	}

	switch fields[5] {
	case "0":
		return b, nil
	case "1":
	default:
		return Book{}, fmt.Errorf("invalid issued flag %q", fields[5])
	}

	issueAt, err := parseEpoch(fields[7])
	if err != nil {
		return Book{}, fmt.Errorf("invalid issue time %q", fields[7])
	}
	dueAt, err := parseEpoch(fields[8])
	if err != nil {
		return Book{}, fmt.Errorf("invalid due time %q", fields[8])
	}
	if strings.TrimSpace(fields[6]) == "" {
		return Book{}, fmt.Errorf("issued without borrower")
	}
	if !dueAt.After(issueAt) {
		return Book{}, fmt.Errorf("due time is not after issue time")
	}
	b.Issued = true
	b.Borrower = fields[6]
	b.IssueTime = issueAt
	b.DueTime = dueAt
	return b, nil
}

func epoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func parseEpoch(s string) (time.Time, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if n == 0 {
		return time.Time{}, nil
	}
	return time.Unix(n, 0).UTC(), nil
}
