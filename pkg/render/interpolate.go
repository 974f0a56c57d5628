package render

import (
	"golang.org/x/net/html"

	"github.com/goliatone/go-livebind/pkg/dom"
	"github.com/goliatone/go-livebind/pkg/expr"
)

// interpolateChildren walks n's children depth-first with ctx in scope. Text
// nodes have their expression spans replaced wholesale; element attributes
// containing at least one span are rewritten in place and every other
// attribute is left untouched. Nested array markers are handed off to the
// array renderer instead of being interpolated as plain content.
func (e *Engine) interpolateChildren(n *html.Node, ctx any) {
	child := n.FirstChild
	for child != nil {
		// The marker handler splices the child out, so grab the successor
		// first.
		next := child.NextSibling
		if isArrayMarker(child) {
			e.expandMarker(child, ctx)
		} else {
			e.interpolateNode(child, ctx)
		}
		child = next
	}
}

func (e *Engine) interpolateNode(n *html.Node, ctx any) {
	switch n.Type {
	case html.TextNode:
		n.Data = expr.Interpolate(n.Data, ctx)
	case html.ElementNode:
		e.interpolateAttributes(n, ctx)
		e.interpolateChildren(n, ctx)
	}
}

func (e *Engine) interpolateAttributes(n *html.Node, ctx any) {
	for i := range n.Attr {
		if len(expr.Spans(n.Attr[i].Val)) == 0 {
			continue
		}
		value := expr.Interpolate(n.Attr[i].Val, ctx)
		if e.sanitizer != nil {
			value = e.sanitizer.Sanitize(value)
		}
		n.Attr[i].Val = value
	}
}

func isArrayMarker(n *html.Node) bool {
	if !dom.IsTemplate(n) {
		return false
	}
	_, ok := dom.Attr(n, AttrEach)
	return ok
}
