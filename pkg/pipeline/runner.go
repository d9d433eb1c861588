package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nicholaspatten/svgit/pkg/cache"
	apperr "github.com/nicholaspatten/svgit/pkg/errors"
	"github.com/nicholaspatten/svgit/pkg/history"
	"github.com/nicholaspatten/svgit/pkg/imagetool"
	"github.com/nicholaspatten/svgit/pkg/observability"
	"github.com/nicholaspatten/svgit/pkg/svgpost"
	"github.com/nicholaspatten/svgit/pkg/tempfile"
	"github.com/nicholaspatten/svgit/pkg/tracer"
	"github.com/nicholaspatten/svgit/pkg/upload"
)

// DefaultCacheTTL is how long cached conversions live.
const DefaultCacheTTL = 24 * time.Hour

// cacheKeyType labels conversion entries in cache hooks.
const cacheKeyType = "conversion"

// Tools bundles the external collaborators of a Runner.
type Tools struct {
	Preprocessor Preprocessor
	Monochrome   Tracer
	Color        Tracer
	Identifier   imagetool.Identifier
}

// Runner executes conversions.
//
// The Runner holds no per-request state. Multiple goroutines can safely use
// the same Runner; each Execute call gets its own temp file manager.
type Runner struct {
	Tools      Tools
	Validator  *upload.Validator
	ScratchDir string

	Cache    cache.Cache
	Keyer    cache.Keyer
	CacheTTL time.Duration

	History history.Store
	Logger  *log.Logger
}

// NewRunner creates a runner with the given tools, cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(tools Tools, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Tools:     tools,
		Validator: upload.NewValidator(0),
		Cache:     c,
		Keyer:     keyer,
		CacheTTL:  DefaultCacheTTL,
		History:   history.NullStore{},
		Logger:    logger,
	}
}

// cachedConversion is the cache payload for a finished conversion.
type cachedConversion struct {
	SVG      string   `json:"svg"`
	Engine   string   `json:"engine"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Execute runs validate → stage → preprocess → trace → postprocess.
//
// Errors carry pkg/errors codes. The returned Result is non-nil even on
// failure so callers can log the state the conversion reached.
func (r *Runner) Execute(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	tmp := tempfile.New(r.ScratchDir)

	s := req.Settings
	res = &Result{ID: tmp.ID(), State: StateReceived, Engine: s.Engine(), Settings: s}
	logger := r.Logger.With("id", res.ID)
	defer func() {
		tmp.ReleaseAll()
		if n := len(tmp.Artifacts()); n > 0 {
			logger.Debug("scratch released", "files", n)
		}
	}()

	defer func() {
		res.Stats.Total = time.Since(start)
		if err != nil {
			logger.Debug("conversion failed", "state", res.State, "err", err)
			res.State = StateFailed
		}
		observability.Pipeline().OnConversionComplete(ctx, res.Engine, res.Stats.Total, err)
		r.record(ctx, req, res, err)
	}()

	// Stage 1: Validate
	var rep upload.Report
	err = r.stage(ctx, StageValidate, &res.Stats.Validate, func() error {
		var verr error
		if rep, verr = r.Validator.Validate(req.Upload); verr != nil {
			return verr
		}
		return s.Validate()
	})
	if err != nil {
		return res, err
	}
	res.State = StateValidated
	res.Warnings = append(res.Warnings, rep.Warnings...)
	for _, w := range rep.Warnings {
		logger.Warn("upload", "warning", w)
	}

	key := r.Keyer.ConversionKey(cache.Hash(req.Upload.Data), s)
	if !req.Refresh {
		if hit, ok := r.lookup(ctx, key); ok {
			res.SVG = hit.SVG
			res.Engine = hit.Engine
			res.Dimensions = imagetool.Dimensions{Width: hit.Width, Height: hit.Height}
			res.Warnings = append(res.Warnings, hit.Warnings...)
			res.CacheHit = true
			res.State = StatePostProcessed
			logger.Info("cache hit", "engine", res.Engine, "bytes", len(res.SVG))
			return res, nil
		}
	}

	// Stage 2: Stage the upload on disk
	in := tmp.Acquire(tempfile.KindInput, upload.Extension(req.Upload.MIMEType))
	err = r.stage(ctx, StageStage, &res.Stats.Stage, func() error {
		if werr := os.WriteFile(in, req.Upload.Data, 0o600); werr != nil {
			return apperr.Wrap(apperr.ErrCodeIO, werr, "Failed to process uploaded file")
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	res.State = StateStaged

	// Stage 3: Preprocess
	mono := s.Monochrome()
	var prepared string
	err = r.stage(ctx, StagePreprocess, &res.Stats.Preprocess, func() error {
		if mono {
			prepared = tmp.Acquire(tempfile.KindIntermediate, ".pbm")
			return r.Tools.Preprocessor.Monochrome(ctx, in, prepared)
		}
		prepared = tmp.Acquire(tempfile.KindIntermediate, ".png")
		return r.Tools.Preprocessor.Normalize(ctx, in, prepared)
	})
	if err != nil {
		return res, err
	}
	res.State = StatePreprocessed

	// Stage 4: Trace
	tr := tracer.Select(s, r.Tools.Monochrome, r.Tools.Color)
	res.Engine = tr.Name()
	out := tmp.Acquire(tempfile.KindOutput, ".svg")
	var svg string
	err = r.stage(ctx, StageTrace, &res.Stats.Trace, func() error {
		if terr := tr.Trace(ctx, prepared, out, s); terr != nil {
			return terr
		}
		data, rerr := os.ReadFile(out)
		if rerr != nil {
			return apperr.Wrap(apperr.ErrCodeIO, rerr, "Failed to read tracer output")
		}
		if strings.TrimSpace(string(data)) == "" {
			return apperr.New(apperr.ErrCodeTraceFailed, "%s produced no output", tr.Name())
		}
		svg = string(data)
		return nil
	})
	if err != nil {
		return res, err
	}
	res.State = StateTraced

	// Stage 5: Post-process (color engine only)
	if !mono {
		_ = r.stage(ctx, StagePostProcess, &res.Stats.PostProcess, func() error {
			dims, derr := r.dimensions(ctx, in)
			if derr != nil {
				logger.Warn("dimension lookup failed", "err", derr)
			}
			res.Dimensions = dims
			var warns []svgpost.Warning
			svg, warns = svgpost.Process(svg, svgpost.Options{Width: dims.Width, Height: dims.Height})
			for _, w := range warns {
				logger.Warn("postprocess", "step", w.Step, "warning", w.Message)
				res.Warnings = append(res.Warnings, w.String())
			}
			return nil
		})
	}
	res.SVG = svg
	res.State = StatePostProcessed

	r.store(ctx, key, res)
	logger.Info("converted",
		"engine", res.Engine,
		"bytes", len(res.SVG),
		"duration", time.Since(start).Round(time.Millisecond))
	return res, nil
}

// stage runs fn, timing it into d and reporting it to the pipeline hooks.
func (r *Runner) stage(ctx context.Context, name string, d *time.Duration, fn func() error) error {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	err := fn()
	*d = time.Since(start)
	hooks.OnStageComplete(ctx, name, *d, err)
	r.Logger.Debug("stage", "name", name, "duration", d.Round(time.Millisecond), "ok", err == nil)
	return err
}

func (r *Runner) dimensions(ctx context.Context, path string) (imagetool.Dimensions, error) {
	if r.Tools.Identifier == nil {
		return imagetool.Dimensions{}, apperr.New(apperr.ErrCodeInternal, "no identifier configured")
	}
	return r.Tools.Identifier.Dimensions(ctx, path)
}

func (r *Runner) lookup(ctx context.Context, key string) (cachedConversion, bool) {
	var c cachedConversion
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
		return c, false
	}
	if !hit || json.Unmarshal(data, &c) != nil || c.SVG == "" {
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return c, false
	}
	observability.Cache().OnCacheHit(ctx, cacheKeyType)
	return c, true
}

func (r *Runner) store(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(cachedConversion{
		SVG:      res.SVG,
		Engine:   res.Engine,
		Width:    res.Dimensions.Width,
		Height:   res.Dimensions.Height,
		Warnings: res.Warnings,
	})
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.CacheTTL); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
}

// record writes a history entry. Failures are logged and never returned.
func (r *Runner) record(ctx context.Context, req Request, res *Result, err error) {
	if r.History == nil {
		return
	}
	rec := history.NewRecord()
	rec.ID = res.ID
	rec.Filename = req.Upload.Filename
	rec.MIMEType = upload.NormalizeMIME(req.Upload.MIMEType)
	rec.InputBytes = int64(len(req.Upload.Data))
	rec.OutputBytes = len(res.SVG)
	rec.Width = res.Dimensions.Width
	rec.Height = res.Dimensions.Height
	rec.Engine = res.Engine
	rec.Settings = res.Settings
	rec.CacheHit = res.CacheHit
	rec.DurationMS = res.Stats.Total.Milliseconds()
	rec.Status = history.StatusOK
	if err != nil {
		rec.Status = history.StatusFailed
		rec.ErrorCode = string(apperr.GetCode(err))
	}
	// The request context may already be cancelled once the response is out.
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if herr := r.History.Record(hctx, rec); herr != nil {
		r.Logger.Warn("history write failed", "err", herr)
	}
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.History != nil {
		if herr := r.History.Close(); err == nil {
			err = herr
		}
	}
	return err
}
