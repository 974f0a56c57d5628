package render

import (
	"strconv"
	"strings"
)

// Slice is a parsed start:end range. A nil bound is open; negative bounds
// count back from the end of the array.
type Slice struct {
	Start *int
	End   *int
}

// ParseSlice parses a data-range value: "start:end" with either bound
// optional, or a bare integer meaning "from this index to the end". It
// reports false for anything it cannot read as a range.
func ParseSlice(raw string) (Slice, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Slice{}, false
	}

	if !strings.Contains(raw, ":") {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Slice{}, false
		}
		return Slice{Start: &n}, true
	}

	parts := strings.SplitN(raw, ":", 2)
	var spec Slice
	if trimmed := strings.TrimSpace(parts[0]); trimmed != "" {
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return Slice{}, false
		}
		spec.Start = &n
	}
	if trimmed := strings.TrimSpace(parts[1]); trimmed != "" {
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return Slice{}, false
		}
		spec.End = &n
	}
	return spec, true
}

// Apply resolves the spec against an array of length n, clamping out-of-range
// bounds so the result is always a valid, possibly empty, [lo:hi] window.
func (s Slice) Apply(n int) (int, int) {
	lo := resolveBound(s.Start, 0, n)
	hi := resolveBound(s.End, n, n)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func resolveBound(bound *int, open, n int) int {
	if bound == nil {
		return open
	}
	v := *bound
	if v < 0 {
		v += n
	}
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}
