package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-catalog/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the catalog as JSON, YAML or CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatName, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("output")
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.closer.Close()
		mgr, err := a.openManager(true)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if outPath != "" && outPath != "-" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer f.Close()
			w = f
		}
		books := mgr.GetAllBooks()
		if err := export.Write(w, format, books, mgr.Now()); err != nil {
			return err
		}
		a.log.Info().Str("format", string(format)).Int("books", len(books)).Str("output", outPath).Msg("catalog exported")
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the catalog file into the backup directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.closer.Close()

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = a.cfg.BackupDir
		}
		path, err := export.Backup(a.cfg.DataFile, dir, time.Now())
		if err != nil {
			return err
		}
		a.log.Info().Str("backup", path).Msg("catalog backed up")
		fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.closer.Close()
		mgr, err := a.openManager(true)
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), export.ComputeStats(mgr.GetAllBooks(), mgr.Now()))
		return nil
	},
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage login accounts",
}

var accountAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, _ := cmd.Flags().GetBool("admin")
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.closer.Close()
		db, err := a.openAccounts()
		if err != nil {
			return err
		}
		defer db.Close()

		pw, err := readPassword(cmd, fmt.Sprintf("Enter password for %s: ", args[0]))
		if err != nil {
			return err
		}
		id, err := db.CreateAccount(args[0], pw, admin)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added account '%s' with ID %d\n", args[0], id)
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.closer.Close()
		db, err := a.openAccounts()
		if err != nil {
			return err
		}
		defer db.Close()

		accounts, err := db.ListAccounts()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(accounts) == 0 {
			fmt.Fprintln(out, "No accounts registered.")
			return nil
		}
		fmt.Fprintf(out, "%-5s %-30s %-6s %s\n", "ID", "Username", "Admin", "Created")
		fmt.Fprintln(out, strings.Repeat("-", 65))
		for _, acct := range accounts {
			fmt.Fprintf(out, "%-5d %-30s %-6t %s\n", acct.ID, acct.Username, acct.Admin, acct.CreatedAt.Format(time.DateTime))
		}
		return nil
	},
}

var accountResetCmd = &cobra.Command{
	Use:   "reset-password <username>",
	Short: "Set a new password for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.closer.Close()
		db, err := a.openAccounts()
		if err != nil {
			return err
		}
		defer db.Close()

		pw, err := readPassword(cmd, fmt.Sprintf("Enter new password for %s: ", args[0]))
		if err != nil {
			return err
		}
		if err := db.ResetPassword(args[0], pw); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password successfully reset for %s\n", args[0])
		return nil
	},
}

// readPassword securely reads a password with masking, falling back to a
// plain line when stdin is not a terminal.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	if !term.IsTerminal(int(syscall.Stdin)) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(line), nil
	}
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout()) // Add newline after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func init() {
	exportCmd.Flags().StringP("format", "f", "json", "export format: json, yaml or csv")
	exportCmd.Flags().StringP("output", "o", "-", "output file, - for stdout")
	backupCmd.Flags().String("dir", "", "backup directory (default from config backup_dir)")
	accountAddCmd.Flags().Bool("admin", false, "grant admin rights")

	accountCmd.AddCommand(accountAddCmd, accountListCmd, accountResetCmd)
}
