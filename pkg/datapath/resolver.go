// Package datapath resolves dotted and bracketed paths against decoded JSON
// values. Resolution is forgiving: a missing key, an out-of-range index, or a
// null intermediate value short-circuits to Undefined instead of failing, so
// callers never need an error branch.
package datapath

import (
	"strconv"
	"strings"
)

type undefined struct{}

// Undefined marks a resolution that walked off the data tree. It is distinct
// from JSON null (nil): null is a value the data actually contains, Undefined
// means the path had nowhere to go.
var Undefined any = undefined{}

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// Resolve walks root one segment at a time and returns the value at path, or
// Undefined when any step cannot proceed. It never panics. An empty path
// resolves to Undefined.
//
// Supported path forms: `user.profile.name`, `items[0].title`,
// `user['first-name']`, `meta["dotted.key"]`.
func Resolve(root any, path string) any {
	segments := Segments(path)
	if len(segments) == 0 {
		return Undefined
	}

	current := root
	for _, segment := range segments {
		if current == nil || IsUndefined(current) {
			return Undefined
		}
		switch typed := current.(type) {
		case map[string]any:
			value, ok := typed[segment]
			if !ok {
				return Undefined
			}
			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(typed) {
				return Undefined
			}
			current = typed[index]
		default:
			// Scalars have no members to step into.
			return Undefined
		}
	}
	return current
}

// Segments splits a path into its ordered lookup keys. Dots separate plain
// segments; brackets carry either a numeric index or a quoted key whose
// characters would break dot notation. Quotes inside brackets are stripped,
// there is no escape support.
func Segments(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	var segments []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			flush()
			i++
		case '[':
			flush()
			end := closingBracket(path, i+1)
			if end == -1 {
				// Unterminated bracket: take the rest verbatim so the lookup
				// simply misses instead of failing.
				segments = append(segments, unquote(path[i+1:]))
				return segments
			}
			segments = append(segments, unquote(path[i+1:end]))
			i = end + 1
		default:
			current.WriteByte(path[i])
			i++
		}
	}
	flush()
	return segments
}

// closingBracket finds the index of the `]` matching a bracket opened just
// before start, skipping any `]` inside a quoted run.
func closingBracket(path string, start int) int {
	var quote byte
	for i := start; i < len(path); i++ {
		ch := path[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == ']':
			return i
		}
	}
	return -1
}

func unquote(segment string) string {
	segment = strings.TrimSpace(segment)
	if len(segment) >= 2 {
		first := segment[0]
		if (first == '\'' || first == '"') && segment[len(segment)-1] == first {
			return segment[1 : len(segment)-1]
		}
	}
	return segment
}
