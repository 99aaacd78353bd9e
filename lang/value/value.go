// Package value implements the runtime representation of Lox values: the
// Nil/Bool/Number/Obj tagged variant (spec section 3), the heap of
// allocated objects, the interned string table, and the mark-sweep
// garbage collector that traces them. The object heap and the collector
// are kept in one package because tracing must type-switch over every
// concrete heap kind, the same coupling clox's object.c/memory.c share.
package value

import (
	"math"
	"strconv"
)

// Value is the interface implemented by every value a Lox program can
// manipulate.
type Value interface {
	// String returns the value's textual form, as printed by the `print`
	// statement (spec section 6).
	String() string
	// Type returns a short, human-readable type name, used in runtime error
	// messages.
	Type() string
}

// Nil is the singleton "nil" value.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// NilValue is the canonical Nil value.
var NilValue = Nil{}

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

const (
	True  = Bool(true)
	False = Bool(false)
)

// Number is a double-precision floating point value. Lox has no separate
// integer type (spec section 3).
type Number float64

func (n Number) Type() string { return "number" }

// String formats n the way `print` does: integral values print with no
// fractional part, everything else uses the platform's default double
// formatting (spec section 6).
func (n Number) String() string {
	f := float64(n)
	if f == float64(int64(f)) && !isInfOrNaN(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isInfOrNaN(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// Truthy implements Lox truthiness: nil and false are falsey, everything
// else — including 0 and the empty string — is truthy (spec section 4.6).
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// Equal implements Lox's EQUAL opcode semantics: nil equals nil, booleans
// and numbers compare by value, strings compare by object identity (valid
// because of interning), and every other object compares by identity (spec
// section 4.6, "Equality").
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	default:
		return a == b
	}
}
