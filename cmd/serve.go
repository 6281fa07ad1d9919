package cmd

import (
	"os/signal"
	"syscall"

	"github.com/mohammad-safakhou/aisearch/internal/runtime"
	"github.com/mohammad-safakhou/aisearch/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCMD(root *rootOptions) *cobra.Command {
	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if serveAddr == "" {
				serveAddr = cfg.Server.Address
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tel, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, runtime.TelemetryOptions{ServiceVersion: Version})
			if err != nil {
				return err
			}
			defer func() {
				if err := tel.Shutdown(cmd.Context()); err != nil {
					log.Warn("telemetry shutdown", zap.Error(err))
				}
			}()

			e := server.New(server.Options{
				NewRunner: func() (server.Runner, error) {
					p, err := buildPipeline(ctx, cfg, log)
					if err != nil {
						return nil, err
					}
					return p, nil
				},
				DefaultLanguage: cfg.General.DefaultLanguage,
				Metrics:         tel.MetricsHandler(),
				RequestTimeout:  cfg.Server.RequestTimeout,
			}, log)
			return server.Run(ctx, e, serveAddr, log)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.address)")
	return serve
}
