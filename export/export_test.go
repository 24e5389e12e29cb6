package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/library"
)

var now = time.Date(2024, time.March, 21, 9, 30, 0, 0, time.UTC)

func sampleBooks() []library.Book {
	issued := now.Add(-20 * 24 * time.Hour)
	return []library.Book{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", Year: 1965,
			Issued: true, Borrower: "Alice", IssueTime: issued, DueTime: issued.Add(14 * 24 * time.Hour)},
		{ID: 2, Title: "Emma", Author: "Jane Austen", Year: 1815},
		{ID: 3, Title: "Persuasion", Author: "jane austen", Year: 1817,
			Issued: true, Borrower: "Bob", IssueTime: now.Add(-time.Hour), DueTime: now.Add(7 * 24 * time.Hour)},
		{ID: 4, Title: "Untitled", Author: "Anon"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"json": FormatJSON, "YAML": FormatYAML, "yml": FormatYAML, " csv ": FormatCSV}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats(sampleBooks(), now)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Available)
	assert.Equal(t, 2, s.Issued)
	assert.Equal(t, 1, s.Overdue)
	assert.Equal(t, 30.0, s.TotalFines)
	assert.Equal(t, 3, s.Authors)
	assert.Equal(t, 1815, s.OldestYear)
	assert.Equal(t, 1965, s.NewestYear)
	assert.Equal(t, int64(1), s.MostOverdue)
	assert.Equal(t, 6.0, s.LongestDelay)

	assert.Equal(t, Stats{}, ComputeStats(nil, now))
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleBooks(), now))

	var doc struct {
		ExportedAt time.Time `json:"exported_at"`
		Stats      Stats     `json:"stats"`
		Books      []struct {
			ID       int64   `json:"id"`
			Title    string  `json:"title"`
			Borrower string  `json:"borrower"`
			Fine     float64 `json:"fine"`
		} `json:"books"`
	}
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &doc))
	assert.True(t, doc.ExportedAt.Equal(now))
	assert.Equal(t, 4, doc.Stats.Total)
	require.Len(t, doc.Books, 4)
	assert.Equal(t, "Dune", doc.Books[0].Title)
	assert.Equal(t, "Alice", doc.Books[0].Borrower)
	assert.Equal(t, 30.0, doc.Books[0].Fine)
	assert.Zero(t, doc.Books[1].Fine)
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sampleBooks(), now))

	var doc struct {
		Stats struct {
			Total   int `yaml:"total"`
			Overdue int `yaml:"overdue"`
		} `yaml:"stats"`
		Books []struct {
			ID          int64   `yaml:"id"`
			Title       string  `yaml:"title"`
			OverdueDays float64 `yaml:"overdue_days"`
		} `yaml:"books"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 4, doc.Stats.Total)
	assert.Equal(t, 1, doc.Stats.Overdue)
	require.Len(t, doc.Books, 4)
	assert.Equal(t, "Persuasion", doc.Books[2].Title)
	assert.Equal(t, 6.0, doc.Books[0].OverdueDays)
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleBooks(), now))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, csvHeader, records[0])

	dune := records[1]
	assert.Equal(t, "1", dune[0])
	assert.Equal(t, "true", dune[5])
	assert.Equal(t, "Alice", dune[6])
	assert.Equal(t, "2024-03-01T09:30:00Z", dune[7])
	assert.Equal(t, "6.0", dune[9])
	assert.Equal(t, "30.0", dune[10])

	emma := records[2]
	assert.Equal(t, "false", emma[5])
	assert.Empty(t, emma[7])
	assert.Equal(t, "0.0", emma[10])
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("xml"), nil, now))
}

func TestBackup(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "library.dat")
	require.NoError(t, os.WriteFile(src, []byte("VERSION:2\n"), 0o644))

	backups := filepath.Join(dir, "backups")
	path, err := Backup(src, backups, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(backups, "library-20240321-093000.dat"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "VERSION:2\n", string(data))

	// Never overwrite an existing backup.
	_, err = Backup(src, backups, now)
	assert.Error(t, err)

	_, err = Backup(filepath.Join(dir, "missing.dat"), backups, now.Add(time.Second))
	assert.Error(t, err)
}
