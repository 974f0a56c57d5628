package expr

import "strings"

// Span is one `{...}` run located inside a text or attribute string. Start is
// the index of the opening brace, End the index just past the closing brace,
// and Body the raw text between them.
type Span struct {
	Start int
	End   int
	Body  string
}

// Spans locates every non-overlapping, non-nested `{...}` span in s, left to
// right. A `{` with no matching `}` is plain text. When an inner `{` appears
// before the next `}`, the span starts at the innermost `{`, so braces never
// nest.
func Spans(s string) []Span {
	var spans []Span
	i := 0
	for i < len(s) {
		open := strings.IndexByte(s[i:], '{')
		if open == -1 {
			break
		}
		open += i
		end := strings.IndexByte(s[open+1:], '}')
		if end == -1 {
			break
		}
		end += open + 1

		// Restart at the innermost opening brace.
		if inner := strings.LastIndexByte(s[open+1:end], '{'); inner != -1 {
			open += 1 + inner
		}

		spans = append(spans, Span{Start: open, End: end + 1, Body: s[open+1 : end]})
		i = end + 1
	}
	return spans
}

// Interpolate replaces every span in s with its evaluated, stringified value
// and splices the results back into the surrounding literal text.
func Interpolate(s string, ctx any) string {
	spans := Spans(s)
	if len(spans) == 0 {
		return s
	}

	var out strings.Builder
	last := 0
	for _, span := range spans {
		out.WriteString(s[last:span.Start])
		out.WriteString(Stringify(Parse(span.Body).Eval(ctx)))
		last = span.End
	}
	out.WriteString(s[last:])
	return out.String()
}
