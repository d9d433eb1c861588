// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about pipeline stages, external tool runs, and cache
// operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetToolHooks(&myToolHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Tool().OnToolStart(ctx, "vtracer", args)
//	// ... run the process ...
//	observability.Tool().OnToolComplete(ctx, "vtracer", exitCode, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the conversion pipeline.
type PipelineHooks interface {
	// OnStageStart is called when the pipeline enters a stage
	// ("validate", "stage", "preprocess", "trace", "postprocess").
	OnStageStart(ctx context.Context, stage string)

	// OnStageComplete is called when a stage finishes, successfully or not.
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnConversionComplete is called once per request with the engine used.
	OnConversionComplete(ctx context.Context, engine string, duration time.Duration, err error)
}

// =============================================================================
// Tool Hooks
// =============================================================================

// ToolHooks receives events about external process invocations.
type ToolHooks interface {
	// OnToolStart records a process launch.
	OnToolStart(ctx context.Context, tool string, args []string)

	// OnToolComplete records a process exit. exitCode is -1 when the
	// process never started or was killed.
	OnToolComplete(ctx context.Context, tool string, exitCode int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error)      {}
func (NoopPipelineHooks) OnConversionComplete(context.Context, string, time.Duration, error) {}

// NoopToolHooks is a no-op implementation of ToolHooks.
type NoopToolHooks struct{}

func (NoopToolHooks) OnToolStart(context.Context, string, []string)                     {}
func (NoopToolHooks) OnToolComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	toolHooks     ToolHooks     = NoopToolHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any conversions.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetToolHooks registers custom tool hooks.
func SetToolHooks(h ToolHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		toolHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Tool returns the registered tool hooks.
func Tool() ToolHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return toolHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	toolHooks = NoopToolHooks{}
	cacheHooks = NoopCacheHooks{}
}
