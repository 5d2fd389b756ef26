package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hed1ad/theftguard/internal/config"
	"github.com/hed1ad/theftguard/internal/logging"
	"github.com/hed1ad/theftguard/internal/metrics"
	"github.com/hed1ad/theftguard/internal/server"
	"github.com/hed1ad/theftguard/pkg/dashboard"
	"github.com/hed1ad/theftguard/pkg/io/csv"
	"github.com/hed1ad/theftguard/pkg/io/postgres"
	"github.com/hed1ad/theftguard/pkg/records"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the risk dashboard and prediction API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.Int("port", config.DefaultPort, "HTTP port")
	flags.String("env", config.DefaultEnv, "Environment (development, production)")
	flags.String("dashboard-csv", config.DefaultDashboardCSV, "Consumer risk table")
	flags.String("database-url", "", "Postgres DSN; overrides --dashboard-csv")

	bind(v, flags.Lookup("port"), "port")
	bind(v, flags.Lookup("env"), "env")
	bind(v, flags.Lookup("dashboard-csv"), "dashboard_csv")
	bind(v, flags.Lookup("database-url"), "database_url")

	return cmd
}

func bind(v *viper.Viper, f *pflag.Flag, key string) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", f.Name, err))
	}
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	recs, err := loadConsumers(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("consumer table loaded", zap.Int("consumers", len(recs)))

	scorer, err := loadScorer(cfg)
	if err != nil {
		return err
	}
	logger.Info("model artifacts loaded",
		zap.String("scaler", cfg.ScalerPath),
		zap.String("model", cfg.ModelPath),
		zap.String("run_id", scorer.RunID()),
	)

	srv := server.New(cfg, dashboard.NewSnapshot(recs), scorer,
		server.WithLogger(logger),
		server.WithMetrics(metrics.New()),
	)
	return srv.Run(ctx)
}

func loadConsumers(ctx context.Context, cfg *config.Config) ([]records.ConsumerRecord, error) {
	if cfg.DatabaseURL == "" {
		recs, err := csv.LoadConsumers(cfg.DashboardCSV)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", cfg.DashboardCSV, err)
		}
		return recs, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer postgres.Close(db)

	return postgres.LoadConsumers(ctx, db)
}
