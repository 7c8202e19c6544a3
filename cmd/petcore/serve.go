package main

import (
	"context"

	"github.com/spf13/cobra"

	"petcore/internal/blob"
	"petcore/internal/config"
	"petcore/internal/observability"
	"petcore/internal/server"
	"petcore/internal/storage"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the profile backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "petcore.yaml", "YAML config file (missing file uses defaults)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides config")
	return cmd
}

// rooted is implemented by blob stores that keep objects in a local directory.
type rooted interface{ Root() string }

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := observability.NewZapLogger(cfg.Logging.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	records, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := records.Close(); err != nil {
			logger.Warn("close storage", "error", err)
		}
	}()
	blobs, err := blob.Open(ctx, cfg.BlobOptions())
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithLogger(logger.Named("server")),
		server.WithMaxUploadBytes(cfg.MaxUploadBytes()),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(observability.NewPrometheusRecorder(cfg.Metrics.Namespace)))
	}
	if fs, ok := blobs.(rooted); ok {
		opts = append(opts, server.WithFiles(server.FileHandler(fs.Root())))
	}
	logger.Info("starting",
		"storage", cfg.Storage.Driver,
		"blob", string(blobs.Driver()),
		"addr", cfg.Server.Addr,
	)
	return server.Run(ctx, cfg.Server.Addr, server.New(records, blobs, opts...), logger)
}
