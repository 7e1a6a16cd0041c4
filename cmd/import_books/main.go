package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"library-lending/library"
)

// catalog is the YAML import format:
//
//	books:
//	  - id: dune-1
//	    title: Dune
//	  - title: Emma   # gets a generated id
type catalog struct {
	Books []catalogEntry `yaml:"books"`
}

type catalogEntry struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
}

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var (
		file   string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:          "import_books",
		Short:        "Import books from a YAML catalog",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := readCatalog(file)
			if err != nil {
				return err
			}
			manager, err := library.NewLibraryManager(dbPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer manager.Close()
			return importBooks(cmd.OutOrStdout(), manager, entries)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "catalog file")
	cmd.Flags().StringVar(&dbPath, "db", "library.db", "SQLite database path")
	return cmd
}

func readCatalog(path string) ([]catalogEntry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c.Books, nil
}

type bookCreator interface {
	CreateBook(id, title string) (library.Result, error)
	AllBooks() ([]*library.Book, error)
}

func importBooks(w io.Writer, lib bookCreator, entries []catalogEntry) error {
	fmt.Fprintf(w, "Importing %d book(s)...\n", len(entries))

	successCount := 0
	errorCount := 0
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = uuid.NewString()
		}
		fmt.Fprintf(w, "Importing: %s... ", e.Title)

		res, err := lib.CreateBook(id, e.Title)
		if err != nil {
			return err
		}
		if !res.OK {
			fmt.Fprintf(w, "ERROR - %s\n", res.Reason)
			errorCount++
			continue
		}
		fmt.Fprintf(w, "SUCCESS (ID: %s)\n", id)
		successCount++
	}

	fmt.Fprintf(w, "\nImport complete!\n")
	fmt.Fprintf(w, "Successfully imported: %d books\n", successCount)
	fmt.Fprintf(w, "Errors: %d\n", errorCount)

	// Display summary of imported books
	if successCount > 0 {
		books, err := lib.AllBooks()
		if err != nil {
			return fmt.Errorf("retrieve books: %w", err)
		}
		fmt.Fprintln(w, "\nLibrary catalog:")
		fmt.Fprintf(w, "%-36s %-50s\n", "ID", "Title")
		fmt.Fprintln(w, strings.Repeat("-", 87))
		for _, book := range books {
			fmt.Fprintf(w, "%-36s %-50s\n", book.ID, truncateString(book.Title, 50))
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
