package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fonttrack/internal/app"
	"fonttrack/internal/config"
	"fonttrack/internal/ft"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var verbose bool

// newApp reads the config and creates an FTApp. The caller must defer a.Close().
func newApp(ctx context.Context) (*app.FTApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	a, err := app.NewFTApp(ctx, cfg, app.WithLogLevel(level))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM so an interrupted run
// stops cleanly without persisting a partial snapshot.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// readPassphrase prompts on the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "fonttrack",
	Short:        "Report installed fonts to a remote catalog",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		catalogURL, _ := cmd.Flags().GetString("catalog-url")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"], user)
		if catalogURL != "" {
			cfg.Catalog.BaseURL = catalogURL
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID:  %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("User:       %s\n", cfg.UserName)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Catalog:    %s %s\n", cfg.Catalog.Type, cfg.Catalog.BaseURL)
		fmt.Printf("Store:      %s %s\n", cfg.Store.Type, cfg.Store.Path)
		fmt.Printf("Font Dirs:  %v\n", cfg.Fonts.Dirs)
		fmt.Printf("Extensions: %v\n", cfg.Fonts.Extensions)
		fmt.Printf("Schedule:   changes every %s, all every %s\n", cfg.Schedule.ChangesInterval, cfg.Schedule.FullInterval)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the key pair used to encrypt mirrored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}

		if err := a.SetupKeys(pass); err != nil {
			return fmt.Errorf("setting up keys: %w", err)
		}
		fmt.Println("Keys generated.")
		return nil
	},
}

// report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Send font changes to the catalog",
}

var reportChangesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Send fonts added, removed, or modified since the last report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport((*app.FTApp).ReportChanges)
	},
}

var reportAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Send every installed font in one bulk upsert",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport((*app.FTApp).ReportAll)
	},
}

func runReport(op func(*app.FTApp, context.Context) (*ft.Report, error)) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := op(a, ctx)
	if report != nil {
		fmt.Println(app.Summary(report))
		for _, e := range report.ExtractionFailures {
			fmt.Printf("  skipped: %v\n", e)
		}
		if report.Result != nil {
			for _, e := range report.Result.Errors() {
				fmt.Printf("  failed:  %v\n", e)
			}
		}
	}
	return err
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the next change report would send",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Status(cmd.Context())
		if err != nil {
			return err
		}

		if !report.Diff.HasChanges() {
			fmt.Printf("%d fonts, no changes.\n", report.FontCount())
			return nil
		}
		for _, p := range report.Diff.Added {
			fmt.Printf("A  %s\n", p)
		}
		for _, p := range report.Diff.Modified {
			fmt.Printf("M  %s\n", p)
		}
		for _, p := range report.Diff.Removed {
			fmt.Printf("D  %s\n", p)
		}
		for _, e := range report.ExtractionFailures {
			fmt.Printf("?  %s\n", e.Path)
		}
		return nil
	},
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Report on a schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		watch, _ := cmd.Flags().GetBool("watch")
		return a.Run(ctx, watch)
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View report run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No report runs recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.Duration().Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-13s  %s  %-7s  fonts:%d +%d ~%d -%d upserted:%d failed:%d  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				op.FontCount, op.Created, op.Updated, op.Deleted, op.Upserted, op.Failed,
				duration,
			)
			if op.Error != "" {
				fmt.Printf("     %s\n", op.Error)
			}
		}
		return nil
	},
}

// remote command
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Inspect the remote catalog",
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the records the catalog holds for this user",
	RunE: func(cmd *cobra.Command, args []string) error {
		skip, _ := cmd.Flags().GetInt("skip")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.RemoteList(cmd.Context(), skip, limit)
		if err != nil {
			return fmt.Errorf("querying catalog: %w", err)
		}
		for _, rec := range recs {
			fmt.Printf("%s\t%s\t%s\n", rec.FontPath, rec.Fields["family"], rec.Fields["subfamily"])
		}
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage the accepted snapshot",
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local snapshot with the copy in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		n, err := a.RestoreSnapshot(cmd.Context(), pass)
		if err != nil {
			return err
		}
		fmt.Printf("Restored snapshot with %d font(s)\n", n)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the history database",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the database schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.DBStatus()
		if err != nil {
			return err
		}
		fmt.Printf("Schema: %s\n", status)
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Copy the history database to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDB(args[0]); err != nil {
			return err
		}
		fmt.Printf("Database copied to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("user", "", "User name sent with every font record")
	configInitCmd.MarkFlagRequired("user")
	configInitCmd.Flags().String("catalog-url", "", "Base URL of the font catalog")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// report subcommands
	reportCmd.AddCommand(reportChangesCmd)
	reportCmd.AddCommand(reportAllCmd)

	remoteCmd.AddCommand(remoteListCmd)
	remoteListCmd.Flags().Int("skip", 0, "Number of records to skip")
	remoteListCmd.Flags().Int("limit", 50, "Maximum number of records to list (0 for all)")

	snapshotCmd.AddCommand(snapshotRestoreCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbBackupCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("watch", false, "Also report when files change under the font directories")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(dbCmd)
}
