package livebind

import (
	"log/slog"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-livebind/pkg/render"
	"github.com/goliatone/go-livebind/pkg/source"
)

// Option customises a Binder at Bind time.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	src       source.Source
	engine    *render.Engine
	sanitizer *bluemonday.Policy
	onRender  func()
	docMu     *sync.Mutex
}

func applyOptions(options []Option) *config {
	cfg := &config{logger: slog.Default()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	return cfg
}

// WithLogger injects the diagnostics logger shared by the binder and its
// render engine. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithSource supplies the data source directly, bypassing the container's
// data-source attribute lookup.
func WithSource(src source.Source) Option {
	return func(cfg *config) {
		cfg.src = src
	}
}

// WithEngine injects a preconfigured render engine. When set, WithSanitizer
// is ignored.
func WithEngine(engine *render.Engine) Option {
	return func(cfg *config) {
		cfg.engine = engine
	}
}

// WithSanitizer applies a bluemonday policy to interpolated attribute
// values.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		cfg.sanitizer = policy
	}
}

// WithRenderHook runs fn after every successful render pass, while the
// document lock is still held, so the hook may read or serialise the tree
// without racing other binders on the same document. The hook must not call
// Render or Close. Useful for hosts that persist the tree after each update.
func WithRenderHook(fn func()) Option {
	return func(cfg *config) {
		cfg.onRender = fn
	}
}

// WithDocumentLock makes the binder serialize its render passes, hooks, and
// Close on mu instead of a private lock. Every binder whose container shares
// a document must share the same lock; BindAll arranges this automatically.
func WithDocumentLock(mu *sync.Mutex) Option {
	return func(cfg *config) {
		if mu != nil {
			cfg.docMu = mu
		}
	}
}
