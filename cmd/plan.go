package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/studyplan/app"
	"github.com/kilianp07/studyplan/pkg/export"
)

var (
	planDryRun bool
	planFormat string
)

var planCmd = &cobra.Command{
	Use:   "plan <student-id>",
	Short: "Generate and save the study plan of one student",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planDryRun, "dry-run", false, "print the plan without saving it")
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "json", "output format (json or csv)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(planFormat)
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		generate := svc.Generate
		if planDryRun {
			generate = svc.Preview
		}
		plan, err := generate(ctx, args[0])
		if err != nil {
			return err
		}
		return export.WriteAllocations(cmd.OutOrStdout(), format, plan.Allocations)
	})
}
