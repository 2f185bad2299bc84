package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/studyplan/app"
	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/pkg/export"
)

var rescheduleDate string

var rescheduleCmd = &cobra.Command{
	Use:   "reschedule <plan-id>",
	Short: "Move an unfinished plan back to the daily bucket",
	Args:  cobra.ExactArgs(1),
	RunE:  runReschedule,
}

func init() {
	rescheduleCmd.Flags().StringVar(&rescheduleDate, "date", "", "day to plan it on (default today)")
	rootCmd.AddCommand(rescheduleCmd)
}

func runReschedule(cmd *cobra.Command, args []string) error {
	date := model.DateOf(time.Now())
	if rescheduleDate != "" {
		d, err := model.ParseDate(rescheduleDate)
		if err != nil {
			return err
		}
		date = d
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		p, err := svc.Reschedule(ctx, args[0], date)
		if err != nil {
			return err
		}
		return export.WriteJSON(cmd.OutOrStdout(), p)
	})
}
