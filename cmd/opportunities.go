package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var opportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "Manage consolidation opportunities",
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Expire opportunities past their deadline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, cfg, err := loadService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeService(svc, cfg.Logging.Level)

		ids, err := svc.Ledger.ExpireDue(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d opportunities expired\n", len(ids))
		return nil
	},
}

func init() {
	opportunitiesCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(opportunitiesCmd)
}
