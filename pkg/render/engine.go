// Package render turns a template element plus a decoded JSON value into a
// list of freshly built nodes. It only ever works on clones: the template the
// author wrote is read, never mutated. Failures inside a pass are logged and
// skipped, never returned.
package render

import (
	"errors"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/goliatone/go-livebind/pkg/dom"
)

// Attribute names the engine recognises on template elements.
const (
	// AttrEach names the path of the array a nested template iterates.
	AttrEach = "data-each"
	// AttrRange carries an optional start:end slice applied before iterating.
	AttrRange = "data-range"
)

// ErrMarkerTypeMismatch is logged when a data-each path resolves to a value
// that is neither an array nor unresolved. The marker renders nothing;
// sibling content is unaffected.
var ErrMarkerTypeMismatch = errors.New("livebind: data-each path did not resolve to an array")

// Engine renders template content against a context value.
type Engine struct {
	logger    *slog.Logger
	sanitizer *bluemonday.Policy
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger injects the diagnostics logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSanitizer applies a bluemonday policy to every attribute value the
// engine rewrites. Attributes without expressions are never touched.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(e *Engine) {
		e.sanitizer = policy
	}
}

// New constructs an Engine with the given options.
func New(options ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// RenderFragment builds the output nodes for one pass: clones of tpl's
// content interpolated against data. When data is itself an array the
// template content is treated as the per-item fragment and rendered once per
// element, honouring an optional data-range on tpl; an empty array still
// renders the fragment once with an empty object so fallback operators can
// supply a placeholder. The returned nodes are detached and tpl is left
// untouched.
func (e *Engine) RenderFragment(tpl *html.Node, data any) []*html.Node {
	if items, ok := data.([]any); ok {
		if raw, found := dom.Attr(tpl, AttrRange); found {
			items = e.sliceItems(items, raw)
		}
		return e.renderItems(tpl, items)
	}
	return e.renderClone(tpl, data)
}

// renderClone clones tpl's content, interpolates it with ctx, and returns
// the detached children.
func (e *Engine) renderClone(tpl *html.Node, ctx any) []*html.Node {
	clone := dom.Clone(tpl)
	e.interpolateChildren(clone, ctx)
	return detachChildren(clone)
}

// renderItems runs the per-item loop: one clone of tpl's content per element,
// each with its context replaced wholesale by that element. A zero-length
// array renders exactly once with an empty object context.
func (e *Engine) renderItems(tpl *html.Node, items []any) []*html.Node {
	if len(items) == 0 {
		items = []any{map[string]any{}}
	}
	var out []*html.Node
	for _, item := range items {
		out = append(out, e.renderClone(tpl, item)...)
	}
	return out
}

func (e *Engine) sliceItems(items []any, raw string) []any {
	spec, ok := ParseSlice(raw)
	if !ok {
		e.logger.Debug("livebind: ignoring unparseable range", "range", raw)
		return items
	}
	lo, hi := spec.Apply(len(items))
	return items[lo:hi]
}

func detachChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for n.FirstChild != nil {
		child := n.FirstChild
		n.RemoveChild(child)
		out = append(out, child)
	}
	return out
}
