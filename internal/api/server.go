// Package api serves the conversion pipeline over HTTP.
//
// Routes:
//
//	POST    /vectorize        multipart upload -> image/svg+xml
//	OPTIONS /vectorize        CORS preflight
//	GET     /check-binaries   tool availability report
//	POST    /test-upload      echoes upload metadata without converting
//	GET     /healthz          liveness
//
// /vectorize and /test-upload are also mounted under /api for clients of
// the original web UI.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nicholaspatten/svgit/pkg/pipeline"
	"github.com/nicholaspatten/svgit/pkg/toolexec"
	"github.com/nicholaspatten/svgit/pkg/upload"
)

// formOverhead is the multipart framing and text fields allowed on top of
// the image size limit before the body is cut off.
const formOverhead = 1 << 20

// Converter runs one conversion. *pipeline.Runner implements it.
type Converter interface {
	Execute(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Prober reports tool availability.
type Prober func(ctx context.Context) *toolexec.Report

// Options configures a Server.
type Options struct {
	MaxBytes    int64  // upload ceiling; zero selects upload.DefaultMaxBytes
	AllowOrigin string // Access-Control-Allow-Origin; empty selects "*"
	Logger      *log.Logger
}

// Server is the HTTP front end.
type Server struct {
	conv        Converter
	probe       Prober
	maxBytes    int64
	allowOrigin string
	logger      *log.Logger
}

// New returns a Server. probe may be nil, which disables /check-binaries.
func New(conv Converter, probe Prober, opts Options) *Server {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = upload.DefaultMaxBytes
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		conv:        conv,
		probe:       probe,
		maxBytes:    opts.MaxBytes,
		allowOrigin: opts.AllowOrigin,
		logger:      opts.Logger,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/check-binaries", s.handleCheckBinaries)

	mount := func(r chi.Router) {
		r.Post("/vectorize", s.handleVectorize)
		r.Options("/vectorize", s.handlePreflight)
		r.Post("/test-upload", s.handleTestUpload)
		r.Options("/test-upload", s.handlePreflight)
	}
	mount(r)
	r.Route("/api", func(r chi.Router) {
		mount(r)
		r.Get("/check-binaries", s.handleCheckBinaries)
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
