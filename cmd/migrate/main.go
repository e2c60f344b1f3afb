package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"tourify/internal/adapters/oracle/postgres"
	"tourify/internal/platform/config"
	"tourify/internal/platform/logger"
	"tourify/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var (
	envFlag string
	log     logger.Logger
	db      *sql.DB
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Schema migrations for the entity RBAC tables",
	Long: `Schema migrations for the entity RBAC tables.
Applies the embedded SQL (roles, permissions, has_entity_permission) with golang-migrate.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupDatabase,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runUp,
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback migrations (default: 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDown,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	RunE:  runVersion,
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set migration version (use with caution)",
	Args:  cobra.ExactArgs(1),
	RunE:  runForce,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(forceCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func setupDatabase(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFlag)
	if err != nil {
		return err
	}
	log = logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    "tourify-migrate",
	})

	if cfg.Oracle.DSN == "" {
		return errors.New("DB_DSN is required to run migrations")
	}

	db, err = postgres.Open(cmd.Context(), cfg.Oracle.DSN)
	if err != nil {
		return err
	}
	log.Info("connected to database", map[string]any{"env": envFlag})
	return nil
}

func openMigrate() (*migrate.Migrate, error) {
	m, err := migrations.New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

// closeMigrate cierra source y driver; el driver cierra db.
func closeMigrate(m *migrate.Migrate) {
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		log.Warn("close migrate", map[string]any{"source_error": fmt.Sprint(srcErr), "db_error": fmt.Sprint(dbErr)})
	}
}

func runUp(_ *cobra.Command, _ []string) error {
	m, err := openMigrate()
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("no migrations to apply", nil)
	case err != nil:
		return fmt.Errorf("migration up: %w", err)
	default:
		log.Info("migration up completed", nil)
	}
	return nil
}

func runDown(_ *cobra.Command, args []string) error {
	steps := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("steps must be a positive integer, got %q", args[0])
		}
		steps = n
	}

	m, err := openMigrate()
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	err = m.Steps(-steps)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("no migrations to rollback", nil)
	case err != nil:
		return fmt.Errorf("migration down: %w", err)
	default:
		log.Info("migration down completed", map[string]any{"steps": steps})
	}
	return nil
}

func runVersion(_ *cobra.Command, _ []string) error {
	m, err := openMigrate()
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("no migrations applied yet", nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}

	log.Info("current version", map[string]any{"version": version, "dirty": dirty})
	return nil
}

func runForce(_ *cobra.Command, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("version must be an integer, got %q", args[0])
	}

	m, err := openMigrate()
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Force(version); err != nil {
		return fmt.Errorf("migration force: %w", err)
	}
	log.Info("migration version forced", map[string]any{"version": version})
	return nil
}
