package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/studyplan/app"
	"github.com/kilianp07/studyplan/pkg/export"
)

var (
	slotsFormat   string
	slotsSchedule bool
)

var slotsCmd = &cobra.Command{
	Use:   "slots <student-id>",
	Short: "Print the free time slots of one student",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlots,
}

func init() {
	slotsCmd.Flags().StringVarP(&slotsFormat, "format", "f", "json", "output format (json or csv)")
	slotsCmd.Flags().BoolVar(&slotsSchedule, "schedule", false, "print the full day schedule before commitments")
	rootCmd.AddCommand(slotsCmd)
}

func runSlots(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(slotsFormat)
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		sched, free, err := svc.Slots(ctx, args[0])
		if err != nil {
			return err
		}
		if slotsSchedule {
			if format == export.FormatJSON {
				return export.WriteJSON(cmd.OutOrStdout(), sched)
			}
			return export.WriteSlotsCSV(cmd.OutOrStdout(), sched.Slots)
		}
		return export.WriteSlots(cmd.OutOrStdout(), format, free)
	})
}
