package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/haulshare/app/plugins"
	"github.com/kilianp07/haulshare/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the configured SQL store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Store.Type != "sqlite" && cfg.Store.Type != "postgres" {
			return fmt.Errorf("migrate: store type %q has no schema", cfg.Store.Type)
		}
		// opening a SQL store applies the embedded migrations
		st, err := plugins.NewStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s store migrated\n", cfg.Store.Type)
		return st.Close()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
