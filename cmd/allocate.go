package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var companyID string

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Allocate a company's pending deliveries to its trucks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, cfg, err := loadService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeService(svc, cfg.Logging.Level)

		res, err := svc.Allocator.Allocate(cmd.Context(), companyID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	allocateCmd.Flags().StringVar(&companyID, "company", "", "company id")
	_ = allocateCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(allocateCmd)
}
