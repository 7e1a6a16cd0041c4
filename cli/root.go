// Package cli implements the library command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-lending/config"
	"library-lending/library"
	"library-lending/logger"
)

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every sub-command needs once the root has run.
type app struct {
	configFile string
	dbPath     string
	logLevel   string

	cfg *config.Config
	log *slog.Logger
	mgr *library.LibraryManager

	// readPassword is swapped out in tests.
	readPassword func(prompt string) (string, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&app{readPassword: readPassword})
}

func newRootCmdFor(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "library",
		Short:        "Library lending and reservations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.mgr != nil {
				return a.mgr.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	cmd.AddCommand(
		bookCmd(a),
		memberCmd(a),
		borrowCmd(a),
		returnCmd(a),
		reserveCmd(a),
		cancelCmd(a),
		extendCmd(a),
		serveCmd(a),
	)
	return cmd
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logger.Setup(cfg.Log, cmd.ErrOrStderr())

	mgr, err := library.NewLibraryManager(cfg.Database.Path,
		library.WithPolicy(library.Policy{BorrowLimit: cfg.Lending.BorrowLimit, LoanDays: cfg.Lending.LoanDays}),
		library.WithLogger(a.log),
	)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.mgr = mgr
	return nil
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(os.Stderr) // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

// authenticate checks the member's password when one is set, prompting for it
// unless given on the command line.
func (a *app) authenticate(memberID, password string) error {
	has, err := a.mgr.HasPassword(memberID)
	if err != nil || !has {
		return err
	}
	if password == "" {
		if password, err = a.readPassword("Enter your password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	if err := a.mgr.AuthenticateMember(memberID, password); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	return nil
}

// reasonError turns a failed result into a command error.
type reasonError struct{ reason library.Reason }

func (e reasonError) Error() string { return string(e.reason) }

func report(cmd *cobra.Command, res library.Result, err error, okMsg string) error {
	if err != nil {
		return err
	}
	if !res.OK {
		return reasonError{res.Reason}
	}
	fmt.Fprintln(cmd.OutOrStdout(), okMsg)
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
