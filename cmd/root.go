package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/studyplan/app"
	"github.com/kilianp07/studyplan/config"
	"github.com/kilianp07/studyplan/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "studyplan",
	Short:         "Study plan scheduling engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (defaults and SP_ environment when empty)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// withService loads the configuration, starts a service and hands it to fn.
// The context passed to fn is canceled on SIGINT or SIGTERM.
func withService(fn func(ctx context.Context, svc *app.Service) error) error {
	return withConfig(func(ctx context.Context, _ *config.Config, svc *app.Service) error {
		return fn(ctx, svc)
	})
}

func withConfig(fn func(ctx context.Context, cfg *config.Config, svc *app.Service) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.Console)

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	svcCtx, cancel := context.WithCancel(ctx)
	svc.Start(svcCtx)
	defer func() {
		cancel()
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return fn(ctx, cfg, svc)
}
