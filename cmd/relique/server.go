package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"relique/internal/config"
	"relique/internal/daemon"
	"relique/internal/exitcode"
	"relique/internal/metrics"
	"relique/internal/rsync"
	"relique/internal/serverapp"
	"relique/internal/store"
)

// defaultServerDBPath is the single SQLite-compatible file documented in
// spec.md §4.6.
const defaultServerDBPath = "/var/lib/relique/db/server.db"

func newServerCmd(flags *globalFlags) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the relique server daemon",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the server daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), flags, dbPath)
		},
	}
	start.Flags().StringVar(&dbPath, "db", defaultServerDBPath, "path to the server's SQLite database file")
	cmd.AddCommand(start)

	return cmd
}

func runServer(ctx context.Context, flags *globalFlags, dbPath string) error {
	if flags.configPath == "" {
		return wrapExit(exitcode.Config, fmt.Errorf("server: --config is required"))
	}

	log, err := buildLogger(flags.debug)
	if err != nil {
		return wrapExit(exitcode.Software, fmt.Errorf("server: build logger: %w", err))
	}
	defer log.Sync() //nolint:errcheck

	cfg, err := config.LoadServer(flags.configPath)
	if err != nil {
		return wrapExit(exitcode.Config, fmt.Errorf("server: load config: %w", err))
	}
	for _, e := range cfg.Errors {
		log.Warn("configuration warning", zap.String("key", e.Key), zap.String("desc", e.Desc))
	}

	gormLevel := gormlogger.Warn
	if flags.debug {
		gormLevel = gormlogger.Info
	}
	db, err := store.Open(store.Config{DSN: dbPath, Logger: log, LogLevel: gormLevel})
	if err != nil {
		return wrapExit(exitcode.Software, fmt.Errorf("server: open database: %w", err))
	}

	engine := rsync.NewEngine()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry, "server")

	app := serverapp.New(flags.configPath, cfg, db, engine, m, registry, log)

	watcher, err := config.NewWatcher(log, resolveConfigDir(flags.configPath, cfg.ClientsCfgPath), resolveConfigDir(flags.configPath, cfg.SchedulesCfgPath))
	if err != nil {
		log.Warn("config watcher unavailable, relying on SIGHUP/restart for reload", zap.Error(err))
	} else {
		defer watcher.Close()
		go func() {
			for range watcher.Reload() {
				if err := app.Reload(); err != nil {
					log.Warn("config reload failed", zap.Error(err))
				}
			}
		}()
	}

	tlsConfig, err := loadTLSConfig(cfg.SSLCert, cfg.SSLKey, cfg.StrictSSLCertificateCheck)
	if err != nil {
		return wrapExit(exitcode.Config, fmt.Errorf("server: load TLS materials: %w", err))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.Port),
		Handler:      app.Router(),
		TLSConfig:    tlsConfig,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("relique server starting",
		zap.String("bind_addr", cfg.BindAddr),
		zap.Int("port", cfg.Port),
		zap.String("public_address", cfg.PublicAddress),
		zap.Int("clients", len(cfg.Clients)),
	)

	if err := daemon.Run(ctx, app, srv, log); err != nil {
		return wrapExit(exitcode.Software, fmt.Errorf("server: %w", err))
	}
	return nil
}

// loadTLSConfig loads the configured certificate/key pair for the HTTPS
// listener. strict_ssl_certificate_check only sets InsecureSkipVerify to
// its negation; the listener does not request client certificates, so
// that setting has no effect on incoming connections.
func loadTLSConfig(certPath, keyPath string, strict bool) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s/%s: %w", certPath, keyPath, err)
	}
	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		InsecureSkipVerify: !strict,
	}, nil
}

func resolveConfigDir(configPath, dir string) string {
	if dir == "" {
		return ""
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(filepath.Dir(configPath), dir)
}
