// Package pkg provides the core libraries for svgit raster-to-SVG conversion.
//
// # Overview
//
// svgit turns PNG, JPEG, GIF and WebP images into SVG by driving three
// external programs: ImageMagick to preprocess, then potrace (monochrome)
// or vtracer (color) to trace. The pkg directory is organized into three
// areas:
//
//  1. Domain logic: [settings], [upload], [svgpost]
//  2. Tool adapters: [toolexec], [imagetool], [tracer]
//  3. Orchestration and infrastructure: [pipeline], [tempfile], [cache],
//     [history], [config], [observability], [errors]
//
// # Architecture
//
// The data flow of one conversion:
//
//	multipart upload / local file
//	         ↓
//	    [upload] validate size, type, content
//	         ↓
//	    [settings] resolve preset and fields
//	         ↓
//	    [tempfile] stage input on disk
//	         ↓
//	    [imagetool] ImageMagick: threshold to PBM, or normalize to PNG
//	         ↓
//	    [tracer] potrace or vtracer
//	         ↓
//	    [svgpost] fix viewBox, restore size, drop black background rects
//	         ↓
//	    image/svg+xml
//
// [pipeline.Runner] runs these stages in order for both the HTTP API and
// the CLI, and removes every temp file before it returns.
//
// # Quick Start
//
//	exec := toolexec.NewExec(logger)
//	magick := imagetool.NewMagick(exec, "magick")
//	runner := pipeline.NewRunner(pipeline.Tools{
//	    Preprocessor: magick,
//	    Monochrome:   tracer.NewPotrace(exec, "potrace"),
//	    Color:        tracer.NewVTracer(exec, "vtracer"),
//	    Identifier:   magick,
//	}, nil, nil, logger)
//
//	s, _ := settings.Resolve(settings.Fields{Preset: "logo"})
//	res, err := runner.Execute(ctx, pipeline.Request{Upload: up, Settings: s})
//
// # Main Packages
//
// [toolexec] - Runs an external program under a time budget. A process
// that outlives its kill-after deadline gets SIGTERM, then SIGKILL after a
// grace period. Output is captured with a size cap. Probe reports which
// tools are installed.
//
// [cache] - Optional conversion cache keyed by image hash and settings.
// NullCache (default), FileCache (CLI) and RedisCache (shared deployments).
//
// [history] - Optional audit log of conversions in MongoDB.
//
// [config] - TOML configuration with environment overrides.
//
// # Testing
//
//	go test ./...                  # All tests; no external tools needed
//	SVGIT_TEST_REDIS_ADDR=localhost:6379 go test ./pkg/cache/...
//	SVGIT_TEST_MONGO_URI=mongodb://localhost go test ./pkg/history/...
//
// [settings]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/settings
// [upload]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/upload
// [svgpost]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/svgpost
// [toolexec]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/toolexec
// [imagetool]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/imagetool
// [tracer]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/tracer
// [pipeline]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/pipeline
// [pipeline.Runner]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/pipeline#Runner
// [tempfile]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/tempfile
// [cache]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/cache
// [history]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/history
// [config]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/config
// [observability]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/observability
// [errors]: https://pkg.go.dev/github.com/nicholaspatten/svgit/pkg/errors
package pkg
