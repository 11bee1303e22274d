package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atikulmunna/dlcount/internal/metrics"
	"github.com/atikulmunna/dlcount/internal/server"
	"github.com/atikulmunna/dlcount/internal/store"
	"github.com/atikulmunna/dlcount/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the stored counts over HTTP",
	Long: `Serve the persisted download counts read-only: /api/counts, /stats.txt,
/metrics (prometheus) and /healthz. Counts are reloaded whenever a
count run replaces them.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8090", "listen address")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(st, metrics.New(), cfg.Report.Start)
	if err := srv.Reload(); err != nil {
		log.Warn().Err(err).Msg("no counts yet, serving empty table")
	}

	w, err := watcher.New(st.CountsLocation())
	if err != nil {
		return err
	}
	go w.Start(cmd.Context())
	go srv.Watch(w)

	return srv.Run(cmd.Context(), cfg.Serve.Addr)
}
