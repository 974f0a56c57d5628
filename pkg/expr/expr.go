// Package expr parses and evaluates the binding expressions that appear
// between braces in template text and attribute values. An expression is a
// left operand (a path or a quoted literal), at most one fallback operator,
// and a fallback value. Parsing never fails: malformed input degrades to a
// plain path lookup that simply resolves to nothing.
package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-livebind/pkg/datapath"
)

// Operator selects the condition under which the fallback replaces the left
// operand's value.
type Operator int

const (
	// OpNone means the expression is a bare path or literal.
	OpNone Operator = iota
	// OpOr substitutes the fallback when the left value is falsy.
	OpOr
	// OpNullish substitutes the fallback only when the left value is null or
	// unresolved.
	OpNullish
	// OpAnd substitutes the fallback when the left value is truthy, serving
	// as a conditional "then" value.
	OpAnd
)

func (op Operator) String() string {
	switch op {
	case OpOr:
		return "||"
	case OpNullish:
		return "??"
	case OpAnd:
		return "&&"
	default:
		return ""
	}
}

// Operand is the left side of an expression: either a quoted string literal
// or a path resolved against the current context.
type Operand struct {
	Literal   string
	Path      string
	IsLiteral bool
}

// Expression is one parsed `{...}` body.
type Expression struct {
	Left     Operand
	Op       Operator
	Fallback any
}

// Parse splits the raw body of one span into left operand, operator, and
// fallback. Operator detection is quote-aware: only a `||`, `??`, or `&&`
// token found outside any single- or double-quoted run counts, and the first
// one scanned left to right wins. When no operator is found (including when
// an unterminated quote swallows the rest of the input) the whole body is a
// single operand with no fallback.
func Parse(raw string) Expression {
	opIndex, op := findOperator(raw)
	if op == OpNone {
		return Expression{Left: classifyOperand(raw)}
	}
	return Expression{
		Left:     classifyOperand(raw[:opIndex]),
		Op:       op,
		Fallback: parseFallback(raw[opIndex+2:]),
	}
}

func findOperator(s string) (int, Operator) {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '|', '?', '&':
			if i+1 < len(s) && s[i+1] == ch {
				switch ch {
				case '|':
					return i, OpOr
				case '?':
					return i, OpNullish
				case '&':
					return i, OpAnd
				}
			}
		}
	}
	return -1, OpNone
}

// classifyOperand trims the operand text and decides literal vs path. Only a
// value wrapped entirely in one pair of matching quotes is a literal; bare
// words, keywords included, are path lookups.
func classifyOperand(s string) Operand {
	trimmed := strings.TrimSpace(s)
	if inner, ok := unwrapQuotes(trimmed); ok {
		return Operand{IsLiteral: true, Literal: inner}
	}
	return Operand{Path: trimmed}
}

// parseFallback types the right operand: quoted string, bool, number, or the
// raw text verbatim. It never fails.
func parseFallback(s string) any {
	trimmed := strings.TrimSpace(s)
	if inner, ok := unwrapQuotes(trimmed); ok {
		return inner
	}
	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return trimmed
}

func unwrapQuotes(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	first := s[0]
	if first != '\'' && first != '"' {
		return "", false
	}
	if s[len(s)-1] != first {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// Eval resolves the left operand against ctx and applies the operator. The
// result is a raw value; use Stringify to render it.
func (e Expression) Eval(ctx any) any {
	left := e.leftValue(ctx)
	switch e.Op {
	case OpOr:
		if falsy(left) {
			return e.Fallback
		}
		return left
	case OpNullish:
		if left == nil || datapath.IsUndefined(left) {
			return e.Fallback
		}
		return left
	case OpAnd:
		if !falsy(left) {
			return e.Fallback
		}
		return left
	default:
		return left
	}
}

func (e Expression) leftValue(ctx any) any {
	if e.Left.IsLiteral {
		return e.Left.Literal
	}
	return datapath.Resolve(ctx, e.Left.Path)
}

// falsy mirrors the loose truthiness the operators are specified against:
// unresolved, null, false, zero, empty string, and NaN are falsy; everything
// else, containers included, is truthy.
func falsy(v any) bool {
	if v == nil || datapath.IsUndefined(v) {
		return true
	}
	switch typed := v.(type) {
	case bool:
		return !typed
	case string:
		return typed == ""
	case float64:
		return typed == 0 || math.IsNaN(typed)
	case float32:
		return typed == 0 || math.IsNaN(float64(typed))
	case int:
		return typed == 0
	case int64:
		return typed == 0
	default:
		return false
	}
}

// Stringify coerces a selected value to its output form. Unresolved and null
// values become the empty string so a missing path renders as nothing.
func Stringify(v any) string {
	if v == nil || datapath.IsUndefined(v) {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(typed, 10)
	case int:
		return strconv.Itoa(typed)
	default:
		return fmt.Sprint(typed)
	}
}
