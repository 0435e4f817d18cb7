package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/veridianhq/hr-api/internal/app"
	"github.com/veridianhq/hr-api/internal/config"
	"github.com/veridianhq/hr-api/internal/observability"
)

func main() {
	root := &cobra.Command{
		Use:           "hr-api",
		Short:         "HR platform authentication and session service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, runtime, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer shutdownRuntime(runtime)

			application, err := app.New(ctx, cfg, runtime)
			if err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, runtime, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer shutdownRuntime(runtime)

			db, err := app.OpenDatabase(cfg)
			if err != nil {
				return err
			}
			if err := app.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			runtime.Logger.Info("migrations applied", "driver", cfg.DatabaseDriver)
			return nil
		},
	}
}

// bootstrap loads .env when present, then the environment, then the
// observability runtime. Missing .env is not an error; production injects
// real environment variables.
func bootstrap(ctx context.Context) (*config.Config, *observability.Runtime, error) {
	_ = godotenv.Load()
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	runtime, err := observability.InitRuntime(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, runtime, nil
}

func shutdownRuntime(runtime *observability.Runtime) {
	if err := runtime.Shutdown(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "observability shutdown:", err)
	}
}
