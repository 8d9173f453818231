package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zoobzio/repoql/internal/logger"
	"github.com/zoobzio/repoql/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve queries over HTTP and WebSocket",
		Long: `Serve the configured store over HTTP.

  POST /query                  run a text query
  POST /entities/{e}/derive    run a derived method query
  GET  /entities               list entity metadata
  GET  /stream                 WebSocket stream with request(n) demand
  GET  /metrics                Prometheus metrics
  GET  /healthz                liveness`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return f.Fail(ExitCommandError, "CONFIG_ERROR", err)
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

			a, err := openApp(cfg, f)
			if err != nil {
				return f.Fail(ExitCommandError, "CONFIG_ERROR", err)
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.engine,
				server.WithLogger(log),
				server.WithGatherer(a.metrics),
				server.WithTimeout(cfg.Exec.Timeout),
			)
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				return f.Fail(ExitFailure, "SERVER_ERROR", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
