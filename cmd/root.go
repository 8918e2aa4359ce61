package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/haulshare/app"
	"github.com/kilianp07/haulshare/config"
	"github.com/kilianp07/haulshare/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "haulshare",
	Short:         "Freight allocation and consolidation service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the HTTP API.

Trucks, drivers and hubs are not managed through the API: they are loaded
into the configured store by the onboarding system. Allocated routes take
part in proximity detection once a dispatcher activates them with
POST /api/routes/{id}/activate.`,
	RunE: run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file (empty for environment only)")
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// ExecuteContext runs the CLI with ctx as the commands' parent context.
func ExecuteContext(ctx context.Context) error { return rootCmd.ExecuteContext(ctx) }

// loadService builds the service from the --config file.
func loadService(ctx context.Context) (*app.Service, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func closeService(svc *app.Service, level string) {
	if err := svc.Close(); err != nil {
		logger.New("main", level).Errorf("service close: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cfg, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer closeService(svc, cfg.Logging.Level)
	return svc.Run(ctx)
}
