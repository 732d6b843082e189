// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries emit events through the registered hooks; the defaults do
// nothing. Consumers register their own implementations once at startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetSyncHooks(&mySyncHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks around each stage:
//
//	observability.Pipeline().OnParseStart(ctx, kind)
//	// ... parse ...
//	observability.Pipeline().OnParseComplete(ctx, kind, items, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the generate and export pipeline.
type PipelineHooks interface {
	// Parse events
	OnParseStart(ctx context.Context, kind string)
	OnParseComplete(ctx context.Context, kind string, items int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, kind string, items int)
	OnLayoutComplete(ctx context.Context, kind string, nodes int, duration time.Duration, err error)

	// Render and export events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
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
// Sync Hooks
// =============================================================================

// SyncHooks receives the outcome of remote/local fallback decisions.
type SyncHooks interface {
	// OnRemote records a successful remote call.
	OnRemote(ctx context.Context, op string, duration time.Duration)

	// OnFallback records a remote failure that was served locally.
	OnFallback(ctx context.Context, op string, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnParseStart(context.Context, string)                                {}
func (NoopPipelineHooks) OnParseComplete(context.Context, string, int, time.Duration, error)  {}
func (NoopPipelineHooks) OnLayoutStart(context.Context, string, int)                          {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                             {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error)    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopSyncHooks is a no-op implementation of SyncHooks.
type NoopSyncHooks struct{}

func (NoopSyncHooks) OnRemote(context.Context, string, time.Duration) {}
func (NoopSyncHooks) OnFallback(context.Context, string, error)       {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	syncHooks     SyncHooks     = NoopSyncHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
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
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetSyncHooks registers custom fallback hooks.
func SetSyncHooks(h SyncHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		syncHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
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

// Sync returns the registered fallback hooks.
func Sync() SyncHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return syncHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	syncHooks = NoopSyncHooks{}
	httpHooks = NoopHTTPHooks{}
}
