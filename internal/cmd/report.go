package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/dlcount/internal/output"
	"github.com/atikulmunna/dlcount/internal/pipeline"
	"github.com/atikulmunna/dlcount/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rewrite and print the report from the stored counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = cfg.WithDumpDir(dumpDir)

		st, err := store.Open(cfg.StoreOptions())
		if err != nil {
			return err
		}
		defer st.Close()

		rep, err := pipeline.New(cfg, st).Rerender(cmd.Context())
		if err != nil {
			return err
		}
		return output.New(outputFmt, os.Stdout).Render(rep)
	},
}

func init() {
	reportCmd.Flags().StringVarP(&dumpDir, "dump", "d", "", "directory holding store, counts and report files")
	rootCmd.AddCommand(reportCmd)
}
