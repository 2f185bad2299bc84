package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/studyplan/app"
	"github.com/kilianp07/studyplan/pkg/export"
)

var batchCmd = &cobra.Command{
	Use:   "batch [student-id...]",
	Short: "Generate plans for many students concurrently",
	Long:  "Generate and save plans for the given students, or for every student in the source when none are given.",
	RunE:  runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, svc *app.Service) error {
		res, err := svc.RunBatch(ctx, args)
		if err != nil {
			return err
		}
		if err := export.WriteJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if res.FailureCount > 0 {
			return fmt.Errorf("batch %s: %d of %d students failed: %v", res.RunID, res.FailureCount, len(res.Students), res.FailedIDs())
		}
		return nil
	})
}
