package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/studyplan/app"
	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/pkg/export"
)

var (
	carryoverCutoff  string
	carryoverStudent string
)

var carryoverCmd = &cobra.Command{
	Use:   "carryover",
	Short: "Move incomplete daily plans to the unfinished bucket",
	RunE:  runCarryover,
}

func init() {
	carryoverCmd.Flags().StringVar(&carryoverCutoff, "cutoff", "", "plans dated before this day are carried over (default today)")
	carryoverCmd.Flags().StringVar(&carryoverStudent, "student", "", "limit the pass to one student")
	rootCmd.AddCommand(carryoverCmd)
}

func runCarryover(cmd *cobra.Command, args []string) error {
	cutoff := model.DateOf(time.Now())
	if carryoverCutoff != "" {
		d, err := model.ParseDate(carryoverCutoff)
		if err != nil {
			return err
		}
		cutoff = d
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		res, err := svc.Carryover(ctx, carryoverStudent, cutoff)
		if err != nil {
			return err
		}
		return export.WriteJSON(cmd.OutOrStdout(), res)
	})
}
