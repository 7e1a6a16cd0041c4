package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"library-lending/library"
)

// memberAction builds a "<verb> <book-id> <member-id>" command that
// authenticates the member before running op.
func memberAction(a *app, use, short string, op func(bookID, memberID string) (library.Result, error), okMsg string) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   use + " <book-id> <member-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, memberID := args[0], args[1]
			if err := a.authenticate(memberID, password); err != nil {
				return err
			}
			res, err := op(bookID, memberID)
			return report(cmd, res, err, fmt.Sprintf(okMsg, bookID, memberID))
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "member password (prompted when required and omitted)")
	return cmd
}

func borrowCmd(a *app) *cobra.Command {
	return memberAction(a, "borrow", "Borrow a book",
		func(b, m string) (library.Result, error) { return a.mgr.Borrow(b, m) },
		"Book %s checked out to %s")
}

func reserveCmd(a *app) *cobra.Command {
	return memberAction(a, "reserve", "Reserve a book (borrows it if free and nobody waits)",
		func(b, m string) (library.Result, error) { return a.mgr.Reserve(b, m) },
		"Book %s reserved for %s")
}

func cancelCmd(a *app) *cobra.Command {
	return memberAction(a, "cancel", "Cancel a reservation",
		func(b, m string) (library.Result, error) { return a.mgr.CancelReservation(b, m) },
		"Reservation of %s by %s cancelled")
}

func returnCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "return <book-id> <member-id>",
		Short: "Return a book; it passes to the next eligible reservation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, memberID := args[0], args[1]
			if err := a.authenticate(memberID, password); err != nil {
				return err
			}
			res, err := a.mgr.Return(bookID, memberID)
			if err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("book %s is not on loan to %s", bookID, memberID)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Book %s returned by %s\n", bookID, memberID)
			if res.NextMemberID != "" {
				fmt.Fprintf(w, "Book automatically assigned to %s (next in reservation queue)\n", res.NextMemberID)
			} else {
				fmt.Fprintln(w, "Book is now available for checkout")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "member password (prompted when required and omitted)")
	return cmd
}

func extendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extend <book-id> [--] <days>",
		Short: "Move a loan's due date by days (negative shortens)",
		Long:  "Move a loan's due date by days. Negative days must follow --, as in: library extend -- b1 -3",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid days %q", args[1])
			}
			res, err := a.mgr.ExtendLoan(args[0], days)
			return report(cmd, res, err, fmt.Sprintf("Loan of %s extended by %d day(s)", args[0], days))
		},
	}
}
