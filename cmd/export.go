package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutline/leadlist-cli/internal/export"
)

var (
	exportXLSXPath string
	exportCRM      bool
)

var exportCmd = &cobra.Command{
	Use:   "export <job-id>",
	Short: "Deliver a finished job's leads to an XLSX workbook or Salesforce",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportXLSXPath == "" && !exportCRM {
			return eris.New("nothing to do: pass --xlsx or --crm")
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		jobID := args[0]
		if _, err := st.GetJob(ctx, jobID); err != nil {
			return err
		}

		leads, err := st.ListLeads(ctx, jobID)
		if err != nil {
			return err
		}
		zap.L().Info("exporting leads", zap.String("job_id", jobID), zap.Int("leads", len(leads)))

		if exportXLSXPath != "" {
			if err := export.WriteXLSX(exportXLSXPath, leads); err != nil {
				return err
			}
			zap.L().Info("wrote workbook", zap.String("path", exportXLSXPath))
		}

		if exportCRM {
			sf, err := initSalesforce()
			if err != nil {
				return err
			}
			accepted, err := export.NewCRMSync(sf).SyncLeads(ctx, leads)
			if err != nil {
				return err
			}
			zap.L().Info("synced to salesforce", zap.Int("accepted", accepted))
		}

		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportXLSXPath, "xlsx", "", "write leads to this XLSX path")
	exportCmd.Flags().BoolVar(&exportCRM, "crm", false, "upsert leads into Salesforce")
	rootCmd.AddCommand(exportCmd)
}
