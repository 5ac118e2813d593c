package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/communitylink/communitylink/internal/bootstrap"
	"github.com/communitylink/communitylink/internal/pkg/logger"
	"github.com/communitylink/communitylink/internal/seed"
	"github.com/communitylink/communitylink/internal/server"
)

// @title CommunityLink API
// @version 1.0
// @description Volunteer actions, applications and notifications.

// @contact.name API Support
// @contact.email support@communitylink.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

var opts bootstrap.Options

func main() {
	rootCmd := &cobra.Command{
		Use:           "communitylink",
		Short:         "CommunityLink - volunteer actions platform",
		Long:          `Runs the CommunityLink web application and API, and manages its database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "configs/config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "Path to an env file loaded before the configuration")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(opts)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cmd.Context(), cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize server")
		return err
	}

	// Run blocks until a shutdown signal
	if err := srv.Run(cmd.Context()); err != nil {
		lgr.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		return err
	}
	lgr.Info().Msg("Application finished gracefully.")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(opts)
			if err != nil {
				return err
			}
			storage, err := bootstrap.OpenStorage(cmd.Context(), cfg, lgr, true)
			if err != nil {
				return err
			}
			storage.Close()
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create demo accounts and actions",
		Long:  "Creates demo organizers, volunteers and upcoming actions. Accounts that exist are left untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(opts)
			if err != nil {
				return err
			}
			storage, err := bootstrap.OpenStorage(ctx, cfg, lgr, true)
			if err != nil {
				return err
			}
			defer storage.Close()

			deps, err := bootstrap.BuildDependencies(ctx, cfg, storage.Store, lgr)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := seed.CreateDemoData(ctx, storage.Store, deps.ActionService, lgr); err != nil {
				return err
			}
			cmd.Printf("Demo data ready. Every demo account uses the password %q.\n", seed.DemoPassword)
			return nil
		},
	}
}
