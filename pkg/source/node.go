package source

import (
	"fmt"
	"sync"

	"golang.org/x/net/html"

	"github.com/goliatone/go-livebind/pkg/dom"
)

// NodeSource reads JSON text from a data-bearing element in the host tree,
// typically a <script type="application/json"> block. The tree has no
// mutation events of its own, so notification is cooperative: whoever writes
// the node calls Notify, or uses SetText which does both.
type NodeSource struct {
	node *html.Node

	mu   sync.Mutex
	next int
	subs map[int]func()
}

// NewNodeSource wraps the given data-bearing node.
func NewNodeSource(node *html.Node) *NodeSource {
	return &NodeSource{node: node, subs: make(map[int]func())}
}

// Read returns the node's concatenated text content.
func (s *NodeSource) Read() (string, error) {
	if s.node == nil {
		return "", fmt.Errorf("source: node source has no node")
	}
	return dom.Text(s.node), nil
}

// Subscribe registers fn to run on every Notify. The returned cancel is
// idempotent.
func (s *NodeSource) Subscribe(fn func()) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("source: subscription callback is required")
	}
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
	return cancel, nil
}

// Notify runs every registered callback. Call it after writing the node.
func (s *NodeSource) Notify() {
	s.mu.Lock()
	callbacks := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// SetText replaces the node's text content and notifies subscribers. It is a
// convenience for hosts that own the data node.
func (s *NodeSource) SetText(text string) {
	dom.SetText(s.node, text)
	s.Notify()
}
