package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"library-lending/library"
)

func bookCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "book",
		Short: "Manage books",
	}
	c.AddCommand(bookAddCmd(a), bookUpdateCmd(a), bookDeleteCmd(a), bookListCmd(a), bookOverdueCmd(a))
	return c
}

func bookAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <title>",
		Short: "Add a book (an existing id is renamed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.mgr.CreateBook(args[0], args[1])
			return report(cmd, res, err, fmt.Sprintf("Added book %s", args[0]))
		},
	}
}

func bookUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <title>",
		Short: "Change a book's title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.mgr.UpdateBook(args[0], args[1])
			return report(cmd, res, err, fmt.Sprintf("Updated book %s", args[0]))
		},
	}
}

func bookDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book with its loan and reservations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.mgr.DeleteBook(args[0])
			return report(cmd, res, err, fmt.Sprintf("Deleted book %s", args[0]))
		},
	}
}

func bookListCmd(a *app) *cobra.Command {
	var (
		title     string
		available bool
		loanedTo  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List or search books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := library.SearchFilter{TitleContains: title, LoanedTo: loanedTo}
			if cmd.Flags().Changed("available") {
				f.AvailableOnly = &available
			}
			books, err := a.mgr.Search(f)
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), books)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "case-insensitive title substring")
	cmd.Flags().BoolVar(&available, "available", false, "only available (true) or only loaned (false) books")
	cmd.Flags().StringVar(&loanedTo, "loaned-to", "", "only books held by this member id")
	return cmd
}

func bookOverdueCmd(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List loaned books past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := time.Now()
			if asOf != "" {
				parsed, err := time.Parse(time.DateOnly, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of %q: want YYYY-MM-DD", asOf)
				}
				day = parsed
			}
			books, err := a.mgr.OverdueBooks(day)
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), books)
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "reference date YYYY-MM-DD (default today)")
	return cmd
}

func printBooks(w io.Writer, books []*library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}
	fmt.Fprintf(w, "%-12s %-30s %-12s %-12s %s\n", "ID", "Title", "Loaned To", "Due", "Reservation Queue")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, b := range books {
		holder, due := "None", ""
		if !b.Available() {
			holder = b.LoanedTo
		}
		if b.DueDate != nil {
			due = b.DueDate.Format(time.DateOnly)
		}
		queue := "None"
		if len(b.ReservationQueue) > 0 {
			queue = strings.Join(b.ReservationQueue, ", ")
		}
		fmt.Fprintf(w, "%-12s %-30s %-12s %-12s %s\n",
			truncateString(b.ID, 12),
			truncateString(b.Title, 30),
			truncateString(holder, 12),
			due,
			queue)
	}
}
