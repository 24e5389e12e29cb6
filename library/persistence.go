package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// FormatVersion is the catalog file version written by Save.
const FormatVersion = 2

// MaxLineLength is the longest record line Load accepts. Longer lines are
// skipped as malformed.
const MaxLineLength = 1 << 20

const (
	versionPrefix   = "VERSION:"
	nextIDPrefix    = "NEXT_ID:"
	bookCountPrefix = "BOOK_COUNT:"
	headerSeparator = "---"
)

// LoadReport summarizes what Load found in the catalog file.
type LoadReport struct {
	Path      string
	Exists    bool
	Legacy    bool
	Version   int
	HeaderID  int64 // NEXT_ID from the header, 0 when absent
	BookCount int   // BOOK_COUNT from the header, -1 when absent
	Loaded    int
	Skipped   []*MalformedRecordError
}

// CountMismatch reports whether the header's BOOK_COUNT disagrees with what was loaded.
func (r LoadReport) CountMismatch() bool {
	return r.BookCount >= 0 && r.BookCount != r.Loaded
}

// Save writes the catalog to path. The file is written next to path and
// renamed over it once complete.
func Save(path string, c *Catalog) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	mode := fs.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return &IOError{Op: "chmod", Path: path, Err: err}
	}

	w := bufio.NewWriter(tmp)
	fmt.Fprintf(w, "%s%d\n", versionPrefix, FormatVersion)
	fmt.Fprintf(w, "%s%d\n", nextIDPrefix, c.NextID())
	fmt.Fprintf(w, "%s%d\n", bookCountPrefix, c.Len())
	fmt.Fprintln(w, headerSeparator)
	for b := range c.All() {
		fmt.Fprintln(w, EncodeRecord(b))
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// Load reads the catalog at path. A missing file yields an empty catalog.
// Lines that cannot be parsed are logged and skipped; they are listed in the
// report but never fail the load.
func Load(path string, logger zerolog.Logger) (*Catalog, LoadReport, error) {
	report := LoadReport{Path: path, BookCount: -1}
	c := NewCatalog()

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info().Str("path", path).Msg("no catalog file found, starting empty")
		return c, report, nil
	}
	if err != nil {
		return c, report, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	report.Exists = true

	br := bufio.NewReader(f)
	lineNo := 0
	inHeader := false
	var maxID int64

	for {
		line, tooLong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return c, report, &IOError{Op: "read", Path: path, Err: err}
		}
		lineNo++

		if tooLong {
			if lineNo == 1 {
				report.Legacy = true
			}
			inHeader = false
			bad := &MalformedRecordError{Line: lineNo, Reason: fmt.Sprintf("line longer than %d bytes", MaxLineLength)}
			report.Skipped = append(report.Skipped, bad)
			logger.Warn().Int("line", lineNo).Str("reason", bad.Reason).Msg("skipping malformed record")
			continue
		}

		if lineNo == 1 {
			version, ok, err := parseVersion(line)
			if err != nil {
				return c, report, err
			}
			if ok {
				report.Version = version
				inHeader = true
				continue
			}
			report.Legacy = true
			logger.Debug().Str("path", path).Msg("no version header, reading legacy format")
		}

		if inHeader {
			switch {
			case strings.HasPrefix(line, nextIDPrefix):
				n, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, nextIDPrefix)), 10, 64)
				if err != nil {
					logger.Warn().Int("line", lineNo).Str("value", line).Msg("ignoring unreadable NEXT_ID")
				} else {
					report.HeaderID = n
				}
				continue
			case strings.HasPrefix(line, bookCountPrefix):
				n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, bookCountPrefix)))
				if err == nil {
					report.BookCount = n
				}
				continue
			case line == headerSeparator:
				inHeader = false
				continue
			}
			// Records without a separator; the header is over.
			inHeader = false
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		b, err := DecodeRecord(line)
		if err == nil {
			err = c.insert(b)
		}
		if err != nil {
			bad := &MalformedRecordError{Line: lineNo, Text: line, Reason: err.Error()}
			report.Skipped = append(report.Skipped, bad)
			logger.Warn().Int("line", lineNo).Str("reason", bad.Reason).Msg("skipping malformed record")
			continue
		}
		report.Loaded++
		maxID = max(maxID, b.ID)
	}
	// attach already keeps nextID above every loaded id; a larger header value wins.
	if !report.Legacy && report.HeaderID > maxID {
		c.nextID = report.HeaderID
	}

	if report.CountMismatch() {
		logger.Warn().Int("header", report.BookCount).Int("loaded", report.Loaded).Msg("book count differs from header")
	}
	logger.Info().
		Str("path", path).
		Int("books", report.Loaded).
		Int("skipped", len(report.Skipped)).
		Int64("next_id", c.NextID()).
		Bool("legacy", report.Legacy).
		Msg("catalog loaded")
	return c, report, nil
}

// readLine returns the next line without its terminator. A line longer than
// MaxLineLength is read to its end and discarded, with tooLong set.
func readLine(r *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > MaxLineLength {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// parseVersion recognizes a VERSION:<n> first line. Anything else is not a header.
func parseVersion(line string) (int, bool, error) {
	if !strings.HasPrefix(line, versionPrefix) {
		return 0, false, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, versionPrefix)))
	if err != nil || v < 1 {
		return 0, false, nil
	}
	if v > FormatVersion {
		return 0, false, fmt.Errorf("%w: %d (newest known is %d)", ErrUnsupportedVersion, v, FormatVersion)
	}
	return v, true, nil
}
