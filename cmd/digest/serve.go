package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liao/wa-digest/internal/server"
)

func serveCmd(configPath *string) *cobra.Command {
	var flags filterFlags
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for uploading exports and asking questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defaults, err := flags.options(cmd, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newAnalyzer(ctx, cfg)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			return server.New(a, defaults, cfg.Server.MaxUploadMB).Run(ctx, addr)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}
