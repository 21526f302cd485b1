package cli

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tanaylab/mcbrowse/internal/config"
	"github.com/tanaylab/mcbrowse/internal/server"
	"github.com/tanaylab/mcbrowse/pkg/artifact"
	"github.com/tanaylab/mcbrowse/pkg/cache"
	"github.com/tanaylab/mcbrowse/pkg/pipeline"
	"github.com/tanaylab/mcbrowse/pkg/source/files"
	"github.com/tanaylab/mcbrowse/pkg/store"
)

// cleanupInterval is how often expired stored figures are removed.
const cleanupInterval = time.Hour

// serveCommand runs the HTTP server.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve figures over HTTP",
		Long: `Serve exposes the repository and the figure pipeline over HTTP.

Configuration comes from the environment (and a .env file):
  MCBROWSE_ADDR         listen address (default :8080, or :$PORT)
  MCBROWSE_DATA         repository directory (or --data)
  MCBROWSE_REDIS_ADDR   Redis figure cache (else MCBROWSE_CACHE_DIR, else memory)
  MCBROWSE_MONGO_URI    MongoDB figure store (else MCBROWSE_FIGURE_DIR, else memory)
  MCBROWSE_S3_ENDPOINT  S3 bucket that exported files are published to
                        (else MCBROWSE_ARTIFACT_DIR, else not published)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if addr != "" {
				cfg.Addr = addr
			}
			if c.dataDir != "" {
				cfg.DataDir = c.dataDir
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides $MCBROWSE_ADDR)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg *config.Config) error {
	logger := loggerFromContext(ctx)
	if cfg.DataDir == "" {
		return errNoData
	}
	src, err := files.Open(cfg.DataDir)
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(logger)

	opts := []server.Option{server.WithLogger(logger), server.WithFigureTTL(cfg.FigureTTL)}
	if b.artifacts != nil {
		opts = append(opts, server.WithArtifacts(b.artifacts))
	}
	// Keys are scoped per repository.
	keyer := cache.NewScopedKeyer(nil, filepath.Base(filepath.Clean(cfg.DataDir))+":")
	srv, err := server.New(src, pipeline.NewRunner(b.cache, keyer, logger), b.figures, opts...)
	if err != nil {
		return err
	}

	go cleanupLoop(ctx, b.figures, logger)

	err = srv.ListenAndServe(ctx, cfg.Addr)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// backends are the storage services a server runs against.
type backends struct {
	cache     cache.Cache
	figures   store.Store
	artifacts artifact.Store
}

// openBackends connects the configured services, falling back to local
// storage for anything not configured.
func openBackends(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backends, error) {
	c, err := openCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	b := &backends{cache: cache.Instrument(c)}

	if b.figures, err = openFigureStore(ctx, cfg, logger); err != nil {
		b.close(logger)
		return nil, err
	}

	if b.artifacts, err = openArtifacts(cfg, logger); err != nil {
		b.close(logger)
		return nil, err
	}
	return b, nil
}

func openArtifacts(cfg *config.Config, logger *log.Logger) (artifact.Store, error) {
	switch {
	case cfg.S3.Enabled():
		s3, err := artifact.NewS3Store(cfg.S3.S3Config)
		if err != nil {
			return nil, err
		}
		logger.Info("artifact store", "backend", "s3", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
		return s3, nil
	case cfg.ArtifactDir != "":
		dir, err := artifact.NewDirStore(cfg.ArtifactDir)
		if err != nil {
			return nil, err
		}
		logger.Info("artifact store", "backend", "dir", "path", cfg.ArtifactDir)
		return dir, nil
	}
	return nil, nil
}

func openCache(ctx context.Context, cfg *config.Config, logger *log.Logger) (cache.Cache, error) {
	switch {
	case cfg.Redis.Enabled():
		logger.Info("figure cache", "backend", "redis", "addr", cfg.Redis.Addr)
		rc, err := cache.NewRedisCache(ctx, cfg.Redis.RedisConfig)
		if err != nil {
			return nil, err
		}
		return rc, nil
	case cfg.CacheDir != "":
		logger.Info("figure cache", "backend", "file", "dir", cfg.CacheDir)
		fc, err := cache.NewFileCache(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	}
	logger.Info("figure cache", "backend", "memory")
	mc, err := cache.NewMemoryCache(0)
	if err != nil {
		return nil, err
	}
	return mc, nil
}

func openFigureStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (store.Store, error) {
	switch {
	case cfg.Mongo.Enabled():
		logger.Info("figure store", "backend", "mongo", "database", cfg.Mongo.Database)
		ms, err := store.NewMongoStore(ctx, cfg.Mongo.MongoConfig)
		if err != nil {
			return nil, err
		}
		return ms, nil
	case cfg.FigureDir != "":
		logger.Info("figure store", "backend", "file", "dir", cfg.FigureDir)
		fs, err := store.NewFileStore(cfg.FigureDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
	logger.Info("figure store", "backend", "memory")
	mem, err := store.NewMemoryStore(0)
	if err != nil {
		return nil, err
	}
	return mem, nil
}

func (b *backends) close(logger *log.Logger) {
	if b.cache != nil {
		if err := b.cache.Close(); err != nil {
			logger.Warn("close cache", "error", err)
		}
	}
	if b.figures != nil {
		if err := b.figures.Close(); err != nil {
			logger.Warn("close figure store", "error", err)
		}
	}
}

// cleanupLoop removes expired figures until ctx is done.
func cleanupLoop(ctx context.Context, figures store.Store, logger *log.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := figures.Cleanup(ctx); err != nil {
				logger.Warn("figure cleanup", "error", err)
			}
		}
	}
}
