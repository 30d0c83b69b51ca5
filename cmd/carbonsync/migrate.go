package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/carbonsync/internal/cli"
	"github.com/Veraticus/carbonsync/internal/config"
	"github.com/Veraticus/carbonsync/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Other commands migrate automatically; this command is useful to create the
database up front or to check which schema version it is on.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	dbPath := config.ExpandPath(viper.GetString(config.KeyDatabasePath))
	if dbPath == "" {
		dbPath = config.ExpandPath(config.DefaultDatabase)
	}

	slog.Info("Starting database migration", "database", dbPath, "status_only", status)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if status {
		state := cli.FormatSuccess("up to date")
		if current < storage.ExpectedSchemaVersion {
			state = cli.FormatWarning(fmt.Sprintf("%d migration(s) pending", storage.ExpectedSchemaVersion-current))
		}
		_, err = fmt.Fprintln(w, cli.RenderBox(cli.ChartIcon+" Database Migration Status",
			fmt.Sprintf("Database: %s\nCurrent version: %d\nLatest version: %d\n%s",
				dbPath, current, storage.ExpectedSchemaVersion, state)))
		return err
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, err = fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("Database migrated from version %d to %d", current, storage.ExpectedSchemaVersion)))
	return err
}
