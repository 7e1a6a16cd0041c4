package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func memberCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "member",
		Short: "Manage members",
	}
	c.AddCommand(memberAddCmd(a), memberUpdateCmd(a), memberDeleteCmd(a),
		memberListCmd(a), memberSummaryCmd(a), memberPasswdCmd(a))
	return c
}

func memberAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Register a member (an existing id is renamed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.mgr.CreateMember(args[0], args[1])
			return report(cmd, res, err, fmt.Sprintf("Added member '%s' with ID %s", args[1], args[0]))
		},
	}
}

func memberUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <name>",
		Short: "Rename a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.mgr.UpdateMember(args[0], args[1])
			return report(cmd, res, err, fmt.Sprintf("Updated member %s", args[0]))
		},
	}
}

func memberDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a member, handing their books to the next in line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.mgr.DeleteMember(args[0])
			return report(cmd, res, err, fmt.Sprintf("Deleted member %s", args[0]))
		},
	}
}

func memberListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			members, err := a.mgr.AllMembers()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(members) == 0 {
				fmt.Fprintln(w, "No members registered.")
				return nil
			}
			fmt.Fprintf(w, "%-12s %-30s %-15s\n", "ID", "Name", "Password Set")
			fmt.Fprintln(w, strings.Repeat("-", 59))
			for _, m := range members {
				passwordStatus := "No"
				if m.PasswordHash != "" {
					passwordStatus = "Yes"
				}
				fmt.Fprintf(w, "%-12s %-30s %-15s\n", truncateString(m.ID, 12), truncateString(m.Name, 30), passwordStatus)
			}
			return nil
		},
	}
}

func memberSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <id>",
		Short: "Show a member's loans and reservation positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.mgr.MemberSummary(args[0])
			if err != nil {
				return err
			}
			if !sum.OK {
				return reasonError{sum.Reason}
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Loans (%d):\n", len(sum.Loans))
			for _, b := range sum.Loans {
				due := ""
				if b.DueDate != nil {
					due = " due " + b.DueDate.Format("2006-01-02")
				}
				fmt.Fprintf(w, "  %s  %s%s\n", b.ID, b.Title, due)
			}
			fmt.Fprintf(w, "Reservations (%d):\n", len(sum.Reservations))
			for _, r := range sum.Reservations {
				fmt.Fprintf(w, "  %s  position %d\n", r.BookID, r.Position)
			}
			return nil
		},
	}
}

func memberPasswdCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "passwd <id>",
		Short: "Set or reset a member's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				password, err = a.readPassword(fmt.Sprintf("Enter new password for %s: ", args[0]))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}
			res, err := a.mgr.SetMemberPassword(args[0], password)
			return report(cmd, res, err, fmt.Sprintf("Password successfully reset for %s", args[0]))
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	return cmd
}
