package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/studyplan/api"
	"github.com/kilianp07/studyplan/app"
	"github.com/kilianp07/studyplan/config"
	"github.com/kilianp07/studyplan/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API, ingest MQTT progress and run the daily carryover",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withConfig(func(ctx context.Context, cfg *config.Config, svc *app.Service) error {
		log := logger.New("serve")
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return api.Serve(ctx, cfg.API.Addr, api.NewRouter(svc, cfg.API, logger.New("api")), log)
		})
		g.Go(func() error { return svc.ListenProgress(ctx) })
		if at, ok := cfg.Carryover.At(); ok {
			g.Go(func() error {
				svc.RunDailyCarryover(ctx, at)
				return nil
			})
		}
		return g.Wait()
	})
}
