package cli

import (
	"context"
	"os/signal"
	"syscall"

	api "homeops-backend/cmd/api"
	"homeops-backend/pkg/config"
	"homeops-backend/pkg/logger"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, sync workers and scheduler",
		Long: `Start the HTTP API together with the background sync workers, the
periodic sync scheduler and, when GOOGLE_PROJECT_ID is set, the Gmail push
subscriber. Configuration comes from the environment or a .env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := logger.New(cfg.LogLevel, cfg.LogPretty).With().Str("version", version).Logger()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := api.Serve(ctx, cfg, log); err != nil {
				log.Error().Err(err).Msg("server exited")
				return err
			}
			log.Info().Msg("server stopped")
			return nil
		},
	}
}
