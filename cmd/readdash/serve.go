package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eringen/readdash"
)

var serveStaticDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard web server",
	Long: `Run the dashboard web server.

On start the persisted API URL is restored and a first fetch begins. The
server stops gracefully on SIGINT or SIGTERM.

Examples:
  readdash serve
  readdash serve --addr :8080 --db /var/lib/readdash/readdash.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":3000", "listen address")
	serveCmd.Flags().StringVar(&serveStaticDir, "static-dir", "", "extra static files served under /public")
	cobra.CheckErr(v.BindPFlag("addr", serveCmd.Flags().Lookup("addr")))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []readdash.Option
	if serveStaticDir != "" {
		opts = append(opts, readdash.WithStaticDir(serveStaticDir))
	}
	app := readdash.New(cfg, logger, opts...)
	defer app.Close()

	return app.Start(ctx)
}
