package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/studyplan/app"
	"github.com/kilianp07/studyplan/infra/runlog"
	"github.com/kilianp07/studyplan/pkg/export"
)

var (
	runsSince   time.Duration
	runsStudent string
	runsFailed  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query the batch run log",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().DurationVar(&runsSince, "since", 0, "only runs newer than this duration, e.g. 24h")
	runsCmd.Flags().StringVar(&runsStudent, "student", "", "only runs that included this student")
	runsCmd.Flags().BoolVar(&runsFailed, "failed", false, "only runs with failures")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	q := runlog.RunQuery{StudentID: runsStudent, FailedOnly: runsFailed}
	if runsSince > 0 {
		q.Start = time.Now().Add(-runsSince)
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		recs, err := svc.Runs(ctx, q)
		if err != nil {
			return err
		}
		return export.WriteJSON(cmd.OutOrStdout(), recs)
	})
}
