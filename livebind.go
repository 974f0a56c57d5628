// Package livebind binds a JSON data source to a static HTML template and
// keeps the rendered output synchronized as the data changes. Each container
// element owns one authoring <template> child; every change to the source
// re-clones that template's content, interpolates it against the fresh data,
// and atomically swaps the previously rendered siblings for the new ones.
// The authoring template itself is never mutated or removed, and no failure
// in the pipeline ever panics or reaches a caller: everything is reported on
// the diagnostics logger and recovered in place.
package livebind

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/goliatone/go-livebind/pkg/dom"
	"github.com/goliatone/go-livebind/pkg/render"
	"github.com/goliatone/go-livebind/pkg/source"
)

// AttrSource names, on a container element, the id of the data-bearing node
// whose text content is the JSON source.
const AttrSource = "data-source"

var (
	// ErrSourceNotFound means the data-bearing node named by data-source was
	// missing at setup. The binder stays permanently inert; there is no
	// retry once the initial lookup fails.
	ErrSourceNotFound = errors.New("livebind: data source node not found")
	// ErrTemplateNotFound means the container had no direct-child <template>
	// at setup. Permanent, like ErrSourceNotFound.
	ErrTemplateNotFound = errors.New("livebind: container has no template child")
	// ErrInvalidJSON means the source text failed to parse. The render cycle
	// is aborted and any previously rendered output stays in place; the next
	// change notification retries.
	ErrInvalidJSON = errors.New("livebind: data source is not valid JSON")
	// ErrMarkerTypeMismatch re-exports the render package sentinel for
	// callers inspecting logs.
	ErrMarkerTypeMismatch = render.ErrMarkerTypeMismatch
)

// Binder owns one container: its authoring template, its data source
// subscription, and the siblings it rendered last. One Binder per container.
// Binders whose containers live in the same document must share one document
// lock (BindAll installs it automatically): change notifications arrive on
// watcher goroutines, and two binders mutating or serialising one tree
// concurrently is a data race.
type Binder struct {
	container *html.Node
	template  *html.Node
	engine    *render.Engine
	src       source.Source
	logger    *slog.Logger
	onRender  func()

	// mu serializes render passes, hooks, and Close across every binder
	// sharing the document.
	mu       *sync.Mutex
	rendered []*html.Node
	cancel   func()
	inert    bool
	closed   bool
}

// Bind wires a container element to its data source and renders once.
//
// The data-bearing node is resolved exactly once, here: the container's
// data-source attribute names an element id looked up against doc, unless
// WithSource supplies the source directly. A missing source or a missing
// direct-child <template> leaves the binder inert, with the failure logged.
// Bind never returns an error; an inert binder's Render and Close are no-ops.
func Bind(doc, container *html.Node, options ...Option) *Binder {
	cfg := applyOptions(options)

	b := &Binder{
		container: container,
		logger:    cfg.logger,
		onRender:  cfg.onRender,
		src:       cfg.src,
		mu:        cfg.docMu,
	}
	if b.mu == nil {
		b.mu = &sync.Mutex{}
	}

	b.engine = cfg.engine
	if b.engine == nil {
		engineOpts := []render.Option{render.WithLogger(cfg.logger)}
		if cfg.sanitizer != nil {
			engineOpts = append(engineOpts, render.WithSanitizer(cfg.sanitizer))
		}
		b.engine = render.New(engineOpts...)
	}

	b.template = dom.FirstChildTemplate(container)
	if b.template == nil {
		b.logger.Error("livebind: container is inert", "error", ErrTemplateNotFound)
		b.inert = true
		return b
	}

	if b.src == nil {
		id, _ := dom.Attr(container, AttrSource)
		node := dom.FindByID(doc, id)
		if node == nil {
			b.logger.Error("livebind: container is inert", "error", ErrSourceNotFound, "id", id)
			b.inert = true
			return b
		}
		b.src = source.NewNodeSource(node)
	}

	cancel, err := b.src.Subscribe(b.Render)
	if err != nil {
		// Still usable for one-shot rendering, just not reactive.
		b.logger.Error("livebind: subscription failed", "error", err)
	} else {
		b.cancel = cancel
	}

	b.Render()
	return b
}

// Render runs one full pass: read and parse the source, build the new output
// entirely off-tree, then swap it in as one step. Passes are serialized by
// the document lock; a later notification's pass simply supersedes an
// earlier one's output. On parse failure the pass is aborted and the
// previous output is left untouched. The render hook runs inside the same
// critical section so it can read the document safely.
func (b *Binder) Render() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.renderLocked() {
		return
	}
	if b.onRender != nil {
		b.onRender()
	}
}

func (b *Binder) renderLocked() bool {
	if b.inert || b.closed {
		return false
	}

	text, err := b.src.Read()
	if err != nil {
		b.logger.Error("livebind: reading data source failed", "error", err)
		return false
	}

	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		b.logger.Error("livebind: render cycle aborted", "error", ErrInvalidJSON, "cause", err)
		return false
	}

	nodes := b.engine.RenderFragment(b.template, data)

	// Swap: everything above built off-tree, so the visible mutation is a
	// remove plus an insert with no intermediate state.
	for _, old := range b.rendered {
		dom.Detach(old)
	}
	parent := b.template.Parent
	for _, n := range nodes {
		parent.InsertBefore(n, b.template)
	}
	b.rendered = nodes
	return true
}

// Close cancels the source subscription and stops all future renders. It is
// idempotent and leaves the last rendered output in place.
func (b *Binder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// Container returns the bound container element.
func (b *Binder) Container() *html.Node { return b.container }

// BindAll binds every element under doc that carries a data-source attribute
// and returns the binders in document order. All binders share one document
// lock, so their passes and hooks never interleave even when change
// notifications arrive on different goroutines. A caller-supplied
// WithDocumentLock still wins, letting several documents share a lock.
func BindAll(doc *html.Node, options ...Option) []*Binder {
	options = append([]Option{WithDocumentLock(&sync.Mutex{})}, options...)

	var binders []*Binder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, ok := dom.Attr(n, AttrSource); ok {
				binders = append(binders, Bind(doc, n, options...))
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return binders
}
