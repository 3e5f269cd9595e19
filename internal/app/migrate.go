package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lnando2k21/projetofinal/internal/config"
	"github.com/Lnando2k21/projetofinal/migrations"
	"github.com/Lnando2k21/projetofinal/pkg/database"
)

// Migrate applies pending schema migrations and returns the applied versions.
// With dryRun set it only lists the embedded migration files.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger, dryRun bool) ([]string, error) {
	if dryRun {
		return database.PendingMigrations(migrations.FS)
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return nil, fmt.Errorf("migrate requires STORE_DRIVER=%s, got %s", config.StoreDriverPostgres, cfg.StoreDriver)
	}

	pool, err := connectPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	applied, err := database.RunMigrations(ctx, pool, migrations.FS, logger)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return applied, nil
}

func connectPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	return pool, nil
}
