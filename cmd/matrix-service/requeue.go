package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRequeueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requeue JOB_ID...",
		Short: "Move FAILED jobs with attempts left back to PENDING",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, ucs, err := bootstrap()
			if err != nil {
				return err
			}
			defer deps.Close()

			var failed int
			for _, id := range args {
				job, err := ucs.JobQueue.Requeue(cmd.Context(), id)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", id, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (attempts %d/%d)\n", job.ID, job.Status, job.Attempts, job.MaxAttempts)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d jobs were not requeued", failed, len(args))
			}
			return nil
		},
	}
}
