package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/dlcount/internal/output"
	"github.com/atikulmunna/dlcount/internal/pipeline"
	"github.com/atikulmunna/dlcount/internal/publish"
	"github.com/atikulmunna/dlcount/internal/store"
)

var (
	logPath   string
	force     bool
	printRank bool
	dumpDir   string
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Ingest an access log and update the download statistics",
	Long: `Parse an Apache combined-format access log, add every new download to
the event store, recount downloads per program and rewrite the report.

Examples:
  dlcount count --log /var/log/apache2/access.log
  dlcount count --log "/var/log/apache2/access.log*" --print
  dlcount count --log access.log --force --dump ./stats`,
	Args: cobra.NoArgs,
	RunE: runCount,
}

func init() {
	countCmd.Flags().StringVarP(&logPath, "log", "l", "", "log file or glob to analyze")
	countCmd.Flags().BoolVarP(&force, "force", "f", false, "start a fresh event store if none exists")
	countCmd.Flags().BoolVarP(&printRank, "print", "p", false, "print the ranked counts")
	countCmd.Flags().StringVarP(&dumpDir, "dump", "d", "", "directory for store, counts and report files")
	_ = countCmd.MarkFlagRequired("log")

	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
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

	var opts []pipeline.Option
	if cfg.Publish.Bucket != "" {
		pub, err := publish.New(cmd.Context(), publish.Options{
			Bucket:  cfg.Publish.Bucket,
			Prefix:  cfg.Publish.Prefix,
			Region:  cfg.Publish.Region,
			Timeout: cfg.Publish.Timeout,
		})
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithPublisher(pub))
	}

	sum, err := pipeline.New(cfg, st, opts...).Run(cmd.Context(), logPath, force)
	if err != nil {
		return err
	}

	if printRank {
		return output.New(outputFmt, os.Stdout).Render(sum.Report)
	}
	return nil
}
