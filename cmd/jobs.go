package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/scoutline/leadlist-cli/internal/model"
	"github.com/scoutline/leadlist-cli/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage list-building jobs",
}

var (
	createTitles    []string
	createSizes     []string
	createLocations []string
	createKeywords  []string
	createLimit     int
	createTenant    string
)

var jobsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new job from targeting criteria",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		job, err := st.CreateJob(ctx, model.JobConfig{
			TargetTitles:      createTitles,
			CompanySizeRanges: createSizes,
			CompanyLocations:  createLocations,
			JobKeywords:       createKeywords,
			ResultLimit:       createLimit,
			TenantID:          createTenant,
		})
		if err != nil {
			return err
		}

		return printJSON(job)
	},
}

var (
	listStatus string
	listTenant string
	listLimit  int
)

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			Status:   model.JobStatus(listStatus),
			TenantID: listTenant,
			Limit:    listLimit,
		})
		if err != nil {
			return err
		}

		return printJSON(jobs)
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return err
		}

		return printJSON(job)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	jobsCreateCmd.Flags().StringSliceVar(&createTitles, "titles", nil, "target person titles")
	jobsCreateCmd.Flags().StringSliceVar(&createSizes, "sizes", nil, "company size ranges, e.g. 50,200")
	jobsCreateCmd.Flags().StringSliceVar(&createLocations, "locations", nil, "company locations")
	jobsCreateCmd.Flags().StringSliceVar(&createKeywords, "keywords", nil, "hiring-signal job keywords")
	jobsCreateCmd.Flags().IntVar(&createLimit, "limit", 0, "max leads (default from config)")
	jobsCreateCmd.Flags().StringVar(&createTenant, "tenant", "", "tenant id")

	jobsListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	jobsListCmd.Flags().StringVar(&listTenant, "tenant", "", "filter by tenant id")
	jobsListCmd.Flags().IntVar(&listLimit, "limit", 50, "max jobs to list")

	jobsCmd.AddCommand(jobsCreateCmd, jobsListCmd, jobsShowCmd)
	rootCmd.AddCommand(jobsCmd)
}
