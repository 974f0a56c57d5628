// Package dom wraps golang.org/x/net/html with the small set of tree
// operations the binding engine needs: parsing, deep cloning, id lookup,
// text access, and sibling splicing.
package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseDocument parses a full HTML document.
func ParseDocument(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ParseDocumentString parses a full HTML document from a string.
func ParseDocumentString(s string) (*html.Node, error) {
	return html.Parse(strings.NewReader(s))
}

// ParseFragment parses markup as it would appear inside <body> and returns
// the top-level nodes, detached.
func ParseFragment(r io.Reader) ([]*html.Node, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	return html.ParseFragment(r, body)
}

// Clone returns a detached deep copy of n, attributes included.
func Clone(n *html.Node) *html.Node {
	copied := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		copied.Attr = append([]html.Attribute(nil), n.Attr...)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		copied.AppendChild(Clone(child))
	}
	return copied
}

// FindByID returns the first element under root whose id attribute equals id,
// or nil. A leading `#` on id is tolerated.
func FindByID(root *html.Node, id string) *html.Node {
	id = strings.TrimPrefix(strings.TrimSpace(id), "#")
	if id == "" || root == nil {
		return nil
	}
	var find func(n *html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode {
			if value, ok := Attr(n, "id"); ok && value == id {
				return n
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if found := find(child); found != nil {
				return found
			}
		}
		return nil
	}
	return find(root)
}

// Text concatenates every text descendant of n.
func Text(n *html.Node) string {
	var out strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out.WriteString(n.Data)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return out.String()
}

// SetText replaces all children of n with a single text node holding s.
func SetText(n *html.Node, s string) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// Attr returns the value of the named attribute on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the named attribute on n.
func SetAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// IsElement reports whether n is an element with the given tag name.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

// IsTemplate reports whether n is a <template> element.
func IsTemplate(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == atom.Template
}

// FirstChildTemplate returns the first direct-child <template> of container,
// or nil.
func FirstChildTemplate(container *html.Node) *html.Node {
	for child := container.FirstChild; child != nil; child = child.NextSibling {
		if IsTemplate(child) {
			return child
		}
	}
	return nil
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// RenderString serialises nodes in order.
func RenderString(nodes ...*html.Node) (string, error) {
	var out strings.Builder
	for _, n := range nodes {
		if err := html.Render(&out, n); err != nil {
			return "", err
		}
	}
	return out.String(), nil
}
