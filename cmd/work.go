package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scoutline/leadlist-cli/internal/model"
	"github.com/scoutline/leadlist-cli/internal/store"
)

var workBatch int

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Run all pending jobs, a few at a time",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		jobs, err := env.Store.ListJobs(ctx, store.JobFilter{
			Status: model.JobStatusPending,
			Limit:  workBatch,
		})
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			zap.L().Info("no pending jobs")
			return nil
		}

		zap.L().Info("working pending jobs",
			zap.Int("jobs", len(jobs)),
			zap.Int("concurrency", cfg.Jobs.MaxConcurrentJobs),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Jobs.MaxConcurrentJobs)

		for _, job := range jobs {
			g.Go(func() error {
				result, runErr := env.Runner.Run(gctx, job.ID)
				if runErr != nil {
					// The job is already marked failed; keep draining the rest.
					zap.L().Error("job failed", zap.String("job_id", job.ID), zap.Error(runErr))
					return nil
				}
				zap.L().Info("job finished",
					zap.String("job_id", result.JobID),
					zap.Int("leads", result.ResultCount),
				)
				return nil
			})
		}

		return g.Wait()
	},
}

func init() {
	workCmd.Flags().IntVar(&workBatch, "batch", 20, "max pending jobs to pick up")
	rootCmd.AddCommand(workCmd)
}
