package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/deadman-dev/deadman/db"
	"github.com/deadman-dev/deadman/internal/auth"
	"github.com/deadman-dev/deadman/internal/dispatch"
	"github.com/deadman-dev/deadman/internal/logger"
	"github.com/deadman-dev/deadman/internal/notify"
	"github.com/deadman-dev/deadman/internal/router"
	"github.com/deadman-dev/deadman/internal/scheduler"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultSweepInterval = time.Hour

var rootCmd = &cobra.Command{
	Use:   "deadman",
	Short: "Dead man's switch notification service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			logger.Get().Warn("No .env file loaded", zap.Error(err))
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server with the periodic expiry sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Get()

		if err := setupDatabase(); err != nil {
			return err
		}

		if err := auth.InitJWTSecret(); err != nil {
			return err
		}

		engine := dispatch.NewEngine(notify.NewNotifier())

		scheduler.Initialize(sweepInterval(), engine.RunSweep)
		defer scheduler.Shutdown()

		r := router.NewRouter()

		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
			log.Info("PORT not set, defaulting to 3000")
		}

		return r.Run(":" + port)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single expiry sweep and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupDatabase(); err != nil {
			return err
		}

		engine := dispatch.NewEngine(notify.NewNotifier())

		report, err := engine.RunSweep(context.Background(), time.Now())

		if err != nil {
			return err
		}

		fmt.Printf("sweep complete: attempted=%d triggered=%d failed=%d skipped=%d\n",
			report.Attempted, report.Triggered, report.Failed, report.Skipped)

		return nil
	},
}

func setupDatabase() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	if err := db.ConnectDatabase(dsn); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

func sweepInterval() time.Duration {
	raw := os.Getenv("SWEEP_INTERVAL")
	if raw == "" {
		return defaultSweepInterval
	}

	interval, err := time.ParseDuration(raw)
	if err != nil || interval <= 0 {
		logger.Get().Warn("Invalid SWEEP_INTERVAL, using default",
			zap.String("value", raw),
			zap.Duration("default", defaultSweepInterval))
		return defaultSweepInterval
	}

	return interval
}

func main() {
	rootCmd.AddCommand(serveCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Get().Fatal("Command failed", zap.Error(err))
	}
}
