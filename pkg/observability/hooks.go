// Package observability provides hooks for metrics, tracing, and logging.
//
// The package keeps the core pipeline free of hard dependencies on any
// observability backend: libraries emit events through hook interfaces with
// no-op defaults, and main registers real implementations at startup.
//
// Register hooks before running any pipeline operations:
//
//	observability.SetPipelineHooks(&myPipelineHooks{})
//	observability.SetCacheHooks(&myCacheHooks{})
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the punch layout pipeline.
type PipelineHooks interface {
	// Parse events cover MIDI file reading.
	OnParseStart(ctx context.Context, file string)
	OnParseComplete(ctx context.Context, file string, trackCount int, duration time.Duration, err error)

	// Extract events cover melody extraction from the parsed tracks.
	OnExtractStart(ctx context.Context, trackCount int)
	OnExtractComplete(ctx context.Context, soundCount int, duration time.Duration, err error)

	// Transpose events cover the shift search.
	OnTransposeStart(ctx context.Context, soundCount int)
	OnTransposeComplete(ctx context.Context, shift int, ratio float64, duration time.Duration, err error)

	// Layout events cover stave placement and pagination.
	OnLayoutStart(ctx context.Context, soundCount int)
	OnLayoutComplete(ctx context.Context, staveCount int, duration time.Duration, err error)

	// Render events cover page serialization.
	OnRenderStart(ctx context.Context, format string, pageCount int)
	OnRenderComplete(ctx context.Context, format string, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnParseStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnParseComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnExtractStart(context.Context, int)                                {}
func (NoopPipelineHooks) OnExtractComplete(context.Context, int, time.Duration, error)       {}
func (NoopPipelineHooks) OnTransposeStart(context.Context, int)                              {}
func (NoopPipelineHooks) OnTransposeComplete(context.Context, int, float64, time.Duration, error) {
}
func (NoopPipelineHooks) OnLayoutStart(context.Context, int)                             {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, int, time.Duration, error)    {}
func (NoopPipelineHooks) OnRenderStart(context.Context, string, int)                     {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
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
	cacheHooks = NoopCacheHooks{}
}
