package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/nicholaspatten/svgit/pkg/cache"
	"github.com/nicholaspatten/svgit/pkg/config"
	"github.com/nicholaspatten/svgit/pkg/history"
	"github.com/nicholaspatten/svgit/pkg/imagetool"
	"github.com/nicholaspatten/svgit/pkg/pipeline"
	"github.com/nicholaspatten/svgit/pkg/toolexec"
	"github.com/nicholaspatten/svgit/pkg/tracer"
	"github.com/nicholaspatten/svgit/pkg/upload"
)

// =============================================================================
// Runner Factory
// =============================================================================

// runnerOptions overrides parts of the configuration for one command.
type runnerOptions struct {
	noCache   bool
	noHistory bool
}

// newRunner assembles a pipeline runner from cfg. The caller must Close it.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, opts runnerOptions) (*pipeline.Runner, error) {
	tools := newTools(cfg, c.Logger)

	var store cache.Cache = cache.NewNullCache()
	if !opts.noCache {
		var err error
		if store, err = newCache(ctx, cfg); err != nil {
			return nil, err
		}
	}

	r := pipeline.NewRunner(tools, store, cache.NewScopedKeyer(nil, cfg.Cache.Prefix), c.Logger)
	r.Validator = upload.NewValidator(cfg.Upload.MaxBytes)
	r.ScratchDir = cfg.Upload.ScratchDir
	if cfg.Cache.TTL.Duration > 0 {
		r.CacheTTL = cfg.Cache.TTL.Duration
	}

	if !opts.noHistory {
		hs, err := newHistory(ctx, cfg)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		r.History = hs
	}
	return r, nil
}

// newTools wires the external executables with their configured budgets.
func newTools(cfg *config.Config, logger *log.Logger) pipeline.Tools {
	exec := newExec(cfg, logger)
	b := cfg.Tools.Budgets

	magick := imagetool.NewMagick(exec, cfg.Tools.Magick)
	magick.Budgets = imagetool.Budgets{
		Monochrome: b.Monochrome.Budget(),
		Normalize:  b.Normalize.Budget(),
		Identify:   b.Identify.Budget(),
	}

	potrace := tracer.NewPotrace(exec, cfg.Tools.Potrace)
	potrace.Budget = b.Potrace.Budget()
	vtracer := tracer.NewVTracer(exec, cfg.Tools.VTracer)
	vtracer.Budget = b.VTracer.Budget()

	return pipeline.Tools{
		Preprocessor: magick,
		Monochrome:   potrace,
		Color:        vtracer,
		// identify reads every format ImageMagick can; decoding covers the
		// common ones when it is missing.
		Identifier: imagetool.ChainIdentifier{magick, imagetool.DecodeIdentifier{}},
	}
}

func newExec(cfg *config.Config, logger *log.Logger) *toolexec.Exec {
	exec := toolexec.NewExec(logger)
	exec.Grace = cfg.Tools.Grace.Duration
	return exec
}

// newCache opens the configured cache backend.
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.BackendFile:
		dir, err := resolveCacheDir(cfg)
		if err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
		return cache.NewFileCache(dir)
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return cache.NewNullCache(), nil
}

// newHistory opens the configured history store.
func newHistory(ctx context.Context, cfg *config.Config) (history.Store, error) {
	if cfg.History.Backend != config.BackendMongo {
		return history.NullStore{}, nil
	}
	return openMongo(ctx, cfg)
}

func openMongo(ctx context.Context, cfg *config.Config) (*history.MongoStore, error) {
	return history.NewMongoStore(ctx, history.MongoOptions{
		URI:        cfg.History.MongoURI,
		Database:   cfg.History.Database,
		Collection: cfg.History.Collection,
	})
}

// probeTools returns a prober over the configured executables.
func probeTools(cfg *config.Config, logger *log.Logger) func(context.Context) *toolexec.Report {
	exec := newExec(cfg, logger)
	tools := toolexec.DefaultTools(cfg.Tools.Magick, cfg.Tools.Potrace, cfg.Tools.VTracer)
	return func(ctx context.Context) *toolexec.Report {
		return toolexec.Probe(ctx, exec, tools)
	}
}
