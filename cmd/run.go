package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Execute one job through discovery, enrichment, and persistence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Runner.Run(ctx, args[0])
		if err != nil {
			return err
		}

		zap.L().Info("job finished",
			zap.String("job_id", result.JobID),
			zap.Int("leads", result.ResultCount),
		)
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
