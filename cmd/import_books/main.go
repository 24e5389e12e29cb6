package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/library"
	"library-catalog/logging"
)

// importer is the principal recorded for imported books.
var importer = &library.Principal{Username: "import_books", Admin: true}

// Result counts what an import did.
type Result struct {
	Imported   int
	Duplicates int
	Errors     int
}

func main() {
	cmd := &cobra.Command{
		Use:   "import_books <file>",
		Short: "Bulk-import books into the catalog",
		Long: `Reads one book per line as title|author|isbn|year (tab-separated lines
are accepted too). ISBN and year are optional. Lines starting with # are ignored.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().String("data", "library.dat", "catalog file to import into")
	cmd.Flags().Bool("validate-isbn", false, "reject invalid ISBN-10/ISBN-13 values")
	cmd.Flags().Bool("dry-run", false, "parse and check the file without saving")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	dataPath, _ := cmd.Flags().GetString("data")
	validateISBN, _ := cmd.Flags().GetBool("validate-isbn")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	logger, closer, err := logging.New(logging.DefaultConfig())
	if err != nil {
		return err
	}
	defer closer.Close()

	mgr, err := library.NewLibraryManager(library.Options{
		DataPath:     dataPath,
		ValidateISBN: validateISBN,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Importing books from %s...\n", args[0])
	res, err := importBooks(mgr, f, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", res.Imported)
	fmt.Fprintf(out, "Already present: %d\n", res.Duplicates)
	fmt.Fprintf(out, "Errors: %d\n", res.Errors)

	if dryRun {
		fmt.Fprintln(out, "Dry run: catalog not saved.")
		return nil
	}
	if res.Imported == 0 {
		return nil
	}
	return mgr.Shutdown()
}

// importBooks adds each line of r to the catalog, reporting progress to out.
func importBooks(mgr *library.LibraryManager, r io.Reader, out io.Writer) (Result, error) {
	var res Result
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		title, author, isbn, year, err := parseLine(line)
		if err != nil {
			fmt.Fprintf(out, "Line %d: ERROR - %v\n", lineNo, err)
			res.Errors++
			continue
		}

		fmt.Fprintf(out, "Importing: %s by %s... ", title, author)
		id, err := mgr.AddBook(importer, title, author, isbn, year)
		switch {
		case errors.Is(err, library.ErrDuplicateTitle), errors.Is(err, library.ErrDuplicateISBN):
			fmt.Fprintln(out, "SKIPPED - already in catalog")
			res.Duplicates++
		case err != nil:
			fmt.Fprintf(out, "ERROR - %v\n", err)
			res.Errors++
		default:
			fmt.Fprintf(out, "SUCCESS (ID: %d)\n", id)
			res.Imported++
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("read import file: %w", err)
	}
	return res, nil
}

func parseLine(line string) (title, author, isbn string, year int, err error) {
	sep := "|"
	if !strings.Contains(line, sep) && strings.Contains(line, "\t") {
		sep = "\t"
	}
	parts := strings.Split(line, sep)
	if len(parts) < 2 || len(parts) > 4 {
		return "", "", "", 0, fmt.Errorf("expected title%sauthor[%sisbn[%syear]], got %d field(s)", sep, sep, sep, len(parts))
	}
	title, author = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if len(parts) > 2 {
		isbn = strings.ReplaceAll(strings.TrimSpace(parts[2]), "-", "")
	}
	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		if year, err = strconv.Atoi(strings.TrimSpace(parts[3])); err != nil {
			return "", "", "", 0, fmt.Errorf("invalid year %q", parts[3])
		}
	}
	return title, author, isbn, year, nil
}
