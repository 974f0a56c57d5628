// Package source abstracts where the JSON text a binder consumes lives and
// how the binder learns it changed. A source is read-only from the engine's
// side: writers are outside collaborators.
package source

// Source is a readable, observable JSON text source. Subscribe registers a
// change callback and returns a cancel function; cancelling twice is safe.
// The subscription must cover only the source's own content, never anything
// the subscriber renders, so a render can never trigger itself.
type Source interface {
	Read() (string, error)
	Subscribe(fn func()) (cancel func(), err error)
}
