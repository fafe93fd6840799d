package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relique/internal/clientapp"
	"relique/internal/config"
	"relique/internal/daemon"
	"relique/internal/exitcode"
	"relique/internal/metrics"
	"relique/internal/rsync"
)

func newClientCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Run the relique client daemon",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the client daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context(), flags)
		},
	}
	cmd.AddCommand(start)

	return cmd
}

func runClient(ctx context.Context, flags *globalFlags) error {
	if flags.configPath == "" {
		return wrapExit(exitcode.Config, fmt.Errorf("client: --config is required"))
	}

	log, err := buildLogger(flags.debug)
	if err != nil {
		return wrapExit(exitcode.Software, fmt.Errorf("client: build logger: %w", err))
	}
	defer log.Sync() //nolint:errcheck

	local, err := config.LoadClient(flags.configPath)
	if err != nil {
		return wrapExit(exitcode.Config, fmt.Errorf("client: load config: %w", err))
	}

	engine := rsync.NewEngine()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry, "client")

	app := clientapp.New(*local, engine, m, registry, log)

	tlsConfig, err := loadTLSConfig(local.SSLCert, local.SSLKey, local.StrictSSLCertificateCheck)
	if err != nil {
		return wrapExit(exitcode.Config, fmt.Errorf("client: load TLS materials: %w", err))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", local.BindAddr, local.Port),
		Handler:      app.Router(),
		TLSConfig:    tlsConfig,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("relique client starting",
		zap.String("bind_addr", local.BindAddr),
		zap.Int("port", local.Port),
		zap.String("server_address", local.ServerAddress),
		zap.Int("server_port", local.ServerPort),
	)

	if err := daemon.Run(ctx, app, srv, log); err != nil {
		return wrapExit(exitcode.Software, fmt.Errorf("client: %w", err))
	}
	return nil
}
