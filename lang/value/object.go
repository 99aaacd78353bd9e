package value

import (
	"fmt"

	"github.com/dolthub/swiss"
	"github.com/mna/loxvm/lang/compiler"
)

// Obj is implemented by every heap-allocated value kind: String, Function,
// Native, Closure, Upvalue, Class, Instance, and BoundMethod (spec section
// 3). Every Obj carries an objHeader that threads it onto the heap's
// allocation list and records its mark bit for the collector.
type Obj interface {
	Value
	header() *objHeader
}

// objHeader is embedded by value in every concrete Obj. It is never
// embedded by pointer so that a freshly allocated object is immediately
// linkable: header() takes its address off of the concrete struct itself.
type objHeader struct {
	marked bool
	next   Obj
}

func (h *objHeader) header() *objHeader { return h }

// String is an interned, immutable sequence of bytes. Two Strings with the
// same content are always the same *String pointer (spec section 4.4), so
// Lox string equality is Go pointer equality.
type String struct {
	objHeader
	chars string
	hash  uint32
}

func (s *String) String() string { return s.chars }
func (s *String) Type() string   { return "string" }

// Go returns the string's content as a native Go string.
func (s *String) Go() string { return s.chars }

// Function is the runtime counterpart of a compiler.Prototype: its code,
// arity, and upvalue count never change once built, and its Values array
// holds the already-converted runtime form of every entry in the
// Prototype's constant pool (numbers and interned strings, plus nested
// *Function objects for any Prototype constants, built recursively once —
// see Heap.LoadFunction). This mirrors the teacher's
// machine.makeToplevelFunction, which builds runtime values from a
// Program's raw constant pool exactly once, at load time.
type Function struct {
	objHeader
	Name         string
	Arity        int
	UpvalueCount int
	Proto        *compiler.Prototype
	Values       []Value
}

func (f *Function) Type() string { return "function" }
func (f *Function) String() string {
	if f.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}

// NativeFn is the signature of a built-in function implemented in Go.
type NativeFn func(args []Value) (Value, error)

// Native wraps a Go function so it can be called like any other Lox
// callable (spec section 6, "clock").
type Native struct {
	objHeader
	Name string
	Fn   NativeFn
}

func (n *Native) Type() string   { return "native" }
func (n *Native) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }

// Upvalue is a reference to a variable captured by a closure. While open,
// Location points into a live VM stack slot and Slot records that slot's
// index (so the owning VM can keep its open-upvalue list ordered by stack
// address without resorting to raw pointer arithmetic); Close copies the
// value into the Upvalue itself and repoints Location at that copy,
// exactly as clox's ObjUpvalue does, so callers never need to branch on
// open/closed state (spec section 3, invariant on Upvalues).
type Upvalue struct {
	objHeader
	Location *Value
	Slot     int // valid only while open
	closed   Value
	// Next threads this Upvalue onto the VM's open-upvalue list, kept
	// sorted by descending stack address (spec section 4.6, "Closing
	// upvalues").
	Next *Upvalue
}

func (u *Upvalue) Type() string   { return "upvalue" }
func (u *Upvalue) String() string { return "upvalue" }

// NewOpenUpvalue returns an Upvalue pointing at the live stack slot slot,
// whose index is idx.
func NewOpenUpvalue(slot *Value, idx int) *Upvalue { return &Upvalue{Location: slot, Slot: idx} }

// Close copies the referenced value into the Upvalue and repoints Location
// at the private copy, detaching it from the stack slot.
func (u *Upvalue) Close() {
	u.closed = *u.Location
	u.Location = &u.closed
}

// Closure pairs a Function with the Upvalues it captured at creation time.
// Multiple Closures can share one Function — every OP_CLOSURE execution
// over the same constant produces a fresh Closure but reuses the same
// Function (spec section 4.6, "CLOSURE").
type Closure struct {
	objHeader
	Fn       *Function
	Upvalues []*Upvalue
}

func (c *Closure) Type() string   { return "function" }
func (c *Closure) String() string { return c.Fn.String() }

// Class is a Lox class: a name and a table of methods, each a Closure
// bound to no particular instance yet. Inherited methods are copied into
// the subclass's table at INHERIT time (spec section 4.6, "Inheritance"),
// so method lookup never walks a superclass chain at call time.
type Class struct {
	objHeader
	Name    string
	Methods *swiss.Map[string, *Closure]
}

func (c *Class) Type() string   { return "class" }
func (c *Class) String() string { return c.Name }

// NewClass returns an empty class named name.
func NewClass(name string) *Class {
	return &Class{Name: name, Methods: swiss.NewMap[string, *Closure](4)}
}

// Instance is an instance of a Class, carrying its own field table
// (separate from the class's shared method table).
type Instance struct {
	objHeader
	Class  *Class
	Fields *swiss.Map[string, Value]
}

func (i *Instance) Type() string   { return "instance" }
func (i *Instance) String() string { return fmt.Sprintf("%s instance", i.Class.Name) }

// NewInstance returns a field-less instance of cls.
func NewInstance(cls *Class) *Instance {
	return &Instance{Class: cls, Fields: swiss.NewMap[string, Value](4)}
}

// BoundMethod pairs a receiver with one of its class's Closures, returned
// by plain (non-fused) property access on a method name (spec section 4.6,
// "Property access").
type BoundMethod struct {
	objHeader
	Receiver Value
	Method   *Closure
}

func (b *BoundMethod) Type() string   { return "function" }
func (b *BoundMethod) String() string { return b.Method.String() }
