package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"library-catalog/auth"
	"library-catalog/config"
	"library-catalog/library"
	"library-catalog/logging"
)

var (
	configFile string
	v          = viper.New()
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	closer io.Closer
}

var rootCmd = &cobra.Command{
	Use:   "library",
	Short: "Book catalog manager",
	Long: `library keeps a catalog of books in a flat file, lends them out with
due dates, and charges fines for late returns.

Run without a subcommand to start the interactive shell.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.closer.Close()
		return runShell(cmd.Context(), a, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .library.yaml in . or $HOME)")
	rootCmd.PersistentFlags().String("data", "", "catalog file (default library.dat)")
	rootCmd.PersistentFlags().String("accounts", "", "accounts database (default accounts.db)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-output", "", "log destination (stderr, stdout, or a file path)")

	for key, flag := range map[string]string{
		"data_file":   "data",
		"accounts_db": "accounts",
		"log.level":   "log-level",
		"log.output":  "log-output",
	} {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("Failed to bind %s flag: %v", flag, err))
		}
	}

	rootCmd.AddCommand(exportCmd, backupCmd, statsCmd, accountCmd)
}

func newApp() (*app, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	if cfg.ConfigFile != "" {
		logger.Debug().Str("file", cfg.ConfigFile).Msg("using config file")
	}
	return &app{cfg: cfg, log: logger, closer: closer}, nil
}

// openManager loads the catalog. readOnly turns autosave off for one-shot commands.
func (a *app) openManager(readOnly bool) (*library.LibraryManager, error) {
	return library.NewLibraryManager(library.Options{
		DataPath:     a.cfg.DataFile,
		ValidateISBN: a.cfg.ValidateISBN,
		Autosave:     a.cfg.Autosave && !readOnly,
		Logger:       a.log,
	})
}

func (a *app) openAccounts() (*auth.Database, error) {
	db, err := auth.NewDatabase(a.cfg.AccountsDB)
	if err != nil {
		return nil, fmt.Errorf("open accounts: %w", err)
	}
	return db, nil
}

func main() {
	// Cancelled on SIGINT/SIGTERM; the shell saves and exits when it sees this.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
