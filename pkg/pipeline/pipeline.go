// Package pipeline provides the image-to-SVG conversion pipeline for svgit.
//
// Both the HTTP API and the CLI run conversions through a Runner so that
// validation, temp file handling, tool invocation and post-processing
// behave identically everywhere.
//
// # Architecture
//
// A conversion moves through these states:
//
//	Received -> Validated -> Staged -> Preprocessed -> Traced -> PostProcessed -> Responded
//
// Any state before Responded can move to Failed. Stages run strictly in
// order on the calling goroutine; the tracer input is the preprocessor
// output. Every temp file a request creates is removed before Execute
// returns, on success and on failure.
//
// # Usage
//
//	runner := pipeline.NewRunner(pipeline.Tools{
//	    Preprocessor: imagetool.NewMagick(exec, "magick"),
//	    Monochrome:   tracer.NewPotrace(exec, "potrace"),
//	    Color:        tracer.NewVTracer(exec, "vtracer"),
//	    Identifier:   imagetool.NewMagick(exec, "magick"),
//	}, nil, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Request{Upload: up, Settings: s})
package pipeline

import (
	"context"
	"time"

	"github.com/nicholaspatten/svgit/pkg/imagetool"
	"github.com/nicholaspatten/svgit/pkg/settings"
	"github.com/nicholaspatten/svgit/pkg/tracer"
	"github.com/nicholaspatten/svgit/pkg/upload"
)

// State is a conversion's position in the pipeline.
type State int

// Conversion states, in order.
const (
	StateReceived State = iota
	StateValidated
	StateStaged
	StatePreprocessed
	StateTraced
	StatePostProcessed
	StateResponded
	StateFailed
)

var stateNames = [...]string{
	"received", "validated", "staged", "preprocessed",
	"traced", "postprocessed", "responded", "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Stage names reported to observability hooks and logs.
const (
	StageValidate    = "validate"
	StageStage       = "stage"
	StagePreprocess  = "preprocess"
	StageTrace       = "trace"
	StagePostProcess = "postprocess"
)

// Preprocessor prepares a raster for one of the tracers.
type Preprocessor interface {
	// Monochrome writes a bilevel bitmap suitable for potrace.
	Monochrome(ctx context.Context, in, out string) error
	// Normalize writes a trimmed raster suitable for vtracer.
	Normalize(ctx context.Context, in, out string) error
}

// Tracer converts a preprocessed raster into an SVG file.
type Tracer = tracer.Tracer

// Request is one conversion request.
type Request struct {
	Upload   upload.Upload
	Settings settings.Settings

	// Refresh bypasses cache reads; the result is still stored.
	Refresh bool
}

// Result holds a finished conversion.
type Result struct {
	ID         string               `json:"id"`
	SVG        string               `json:"-"`
	Engine     string               `json:"engine"`
	Settings   settings.Settings    `json:"settings"`
	Dimensions imagetool.Dimensions `json:"dimensions"`
	Warnings   []string             `json:"warnings,omitempty"`
	CacheHit   bool                 `json:"cacheHit"`
	State      State                `json:"-"`
	Stats      Stats                `json:"stats"`
}

// Stats contains per-stage timings.
type Stats struct {
	Validate    time.Duration `json:"validate"`
	Stage       time.Duration `json:"stage"`
	Preprocess  time.Duration `json:"preprocess"`
	Trace       time.Duration `json:"trace"`
	PostProcess time.Duration `json:"postprocess"`
	Total       time.Duration `json:"total"`
}
