package render

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/goliatone/go-livebind/pkg/datapath"
	"github.com/goliatone/go-livebind/pkg/dom"
)

// expandMarker replaces a nested data-each template inside a cloned subtree
// with its rendered items. The marker element itself never reaches the
// output, and the inserted items are not revisited by the caller's walk.
func (e *Engine) expandMarker(marker *html.Node, ctx any) {
	items := e.resolveMarkerItems(marker, ctx)
	parent := marker.Parent
	for _, item := range items {
		parent.InsertBefore(item, marker)
	}
	parent.RemoveChild(marker)
}

// resolveMarkerItems evaluates the marker's path, applies the optional
// range, and renders one clone of the marker's content per element. An
// unresolved path behaves as an empty array; any other non-array value is a
// type mismatch that renders nothing for this marker.
func (e *Engine) resolveMarkerItems(marker *html.Node, ctx any) []*html.Node {
	path, _ := dom.Attr(marker, AttrEach)
	path = strings.TrimSpace(path)

	value := datapath.Resolve(ctx, path)
	var items []any
	switch {
	case datapath.IsUndefined(value):
		// Leave items empty: the placeholder pass still runs below.
	default:
		typed, ok := value.([]any)
		if !ok {
			e.logger.Error("livebind: array marker skipped",
				"error", ErrMarkerTypeMismatch,
				"path", path,
				"got", fmt.Sprintf("%T", value))
			return nil
		}
		items = typed
	}

	if raw, found := dom.Attr(marker, AttrRange); found {
		items = e.sliceItems(items, raw)
	}
	return e.renderItems(marker, items)
}
