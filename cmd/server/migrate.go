package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lnando2k21/projetofinal/internal/app"
	"github.com/Lnando2k21/projetofinal/internal/config"
	"github.com/Lnando2k21/projetofinal/pkg/logger"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "list the embedded migrations without applying them")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewWithWriter(app.ServiceName+"-migrate", cfg.LogLevel, cmd.ErrOrStderr())

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	names, err := app.Migrate(ctx, cfg, log, migrateDryRun)
	if err != nil {
		return err
	}

	if migrateDryRun {
		cmd.Println("Embedded migrations:")
	} else if len(names) == 0 {
		cmd.Println("Schema is up to date.")
		return nil
	} else {
		cmd.Println("Applied migrations:")
	}
	for _, n := range names {
		cmd.Printf("  %s\n", n)
	}
	return nil
}
