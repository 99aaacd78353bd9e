package value

import (
	"unsafe"

	"github.com/dolthub/swiss"
	"github.com/mna/loxvm/lang/compiler"
)

const initialNextGC = 1 << 20 // 1 MiB (spec section 4.5)

// Heap owns every object a running VM has allocated: the object list the
// collector sweeps, the string-interning table, and the bytesAllocated /
// nextGC bookkeeping that drives the trigger policy (spec section 4.5).
type Heap struct {
	objects        Obj
	bytesAllocated int
	nextGC         int
	grey           []Obj
	Stress         bool // GC on every allocation growth, for test harnesses

	strings *stringTable
}

// NewHeap returns an empty heap with the initial 1 MiB collection
// threshold.
func NewHeap() *Heap {
	return &Heap{nextGC: initialNextGC, strings: newStringTable()}
}

// BytesAllocated reports the heap's current live byte count.
func (h *Heap) BytesAllocated() int { return h.bytesAllocated }

// NextGC reports the byte count that triggers the next automatic
// collection.
func (h *Heap) NextGC() int { return h.nextGC }

// ShouldCollect reports whether an allocating caller should run a
// collection before (or immediately after) its next allocation.
func (h *Heap) ShouldCollect() bool {
	return h.Stress || h.bytesAllocated > h.nextGC
}

func (h *Heap) register(o Obj, size int) {
	o.header().next = h.objects
	h.objects = o
	h.bytesAllocated += size
}

// Intern returns the canonical *String for chars, registering a new
// object on the heap only on a cache miss.
func (h *Heap) Intern(chars string) *String {
	s, isNew := h.strings.intern(chars)
	if isNew {
		h.register(s, objSize(s))
	}
	return s
}

// NewClosure allocates a Closure over fn with the given captured upvalues.
func (h *Heap) NewClosure(fn *Function, upvalues []*Upvalue) *Closure {
	c := &Closure{Fn: fn, Upvalues: upvalues}
	h.register(c, objSize(c))
	return c
}

// NewUpvalue allocates an open Upvalue pointing at the stack slot slot,
// whose index is idx.
func (h *Heap) NewUpvalue(slot *Value, idx int) *Upvalue {
	u := NewOpenUpvalue(slot, idx)
	h.register(u, objSize(u))
	return u
}

// NewClass allocates an empty class named name.
func (h *Heap) NewClass(name string) *Class {
	c := NewClass(name)
	h.register(c, objSize(c))
	return c
}

// NewInstance allocates a field-less instance of cls.
func (h *Heap) NewInstance(cls *Class) *Instance {
	i := NewInstance(cls)
	h.register(i, objSize(i))
	return i
}

// NewBoundMethod allocates a BoundMethod pairing receiver with method.
func (h *Heap) NewBoundMethod(receiver Value, method *Closure) *BoundMethod {
	b := &BoundMethod{Receiver: receiver, Method: method}
	h.register(b, objSize(b))
	return b
}

// NewNative allocates a Native wrapping fn.
func (h *Heap) NewNative(name string, fn NativeFn) *Native {
	n := &Native{Name: name, Fn: fn}
	h.register(n, objSize(n))
	return n
}

// LoadFunction builds the runtime Function tree for proto and every
// Prototype statically nested inside it, converting each constant pool
// entry into its runtime Value exactly once: float64 becomes Number,
// string is interned, and a nested *compiler.Prototype becomes a nested
// *Function built by the same recursive call (mirroring how the teacher's
// machine.makeToplevelFunction converts a Program's raw constant pool into
// runtime values at load time — see DESIGN.md). The returned Function is
// always fresh; callers are responsible for wrapping it in a Closure.
//
// This recursion never checks ShouldCollect: the objects it allocates are
// not reachable from any VM root until the caller wraps the result in a
// Closure and pushes it, so nothing could be safely collected mid-walk.
func (h *Heap) LoadFunction(proto *compiler.Prototype) *Function {
	fn := &Function{
		Name:         proto.Name,
		Arity:        proto.Arity,
		UpvalueCount: proto.UpvalueCount,
		Proto:        proto,
		Values:       make([]Value, len(proto.Constants)),
	}
	for i, c := range proto.Constants {
		switch cv := c.(type) {
		case float64:
			fn.Values[i] = Number(cv)
		case string:
			fn.Values[i] = h.Intern(cv)
		case *compiler.Prototype:
			fn.Values[i] = h.LoadFunction(cv)
		}
	}
	h.register(fn, objSize(fn))
	return fn
}

// NewGlobals returns a fresh, empty globals table, backed by the same
// swiss-table implementation the teacher uses for its dynamic Map value
// (lang/machine/map.go), keyed here by plain variable name instead of by
// Value.
func NewGlobals() *swiss.Map[string, Value] {
	return swiss.NewMap[string, Value](64)
}

// objSize approximates the number of bytes an object contributes to
// bytesAllocated. Exact accounting does not matter for the GC's observable
// behavior (spec section 8, property 3 only requires the count to return
// to zero once every object is freed); what matters is that every
// allocation and its matching sweep agree on the same size.
func objSize(o Obj) int {
	switch v := o.(type) {
	case *String:
		return int(unsafe.Sizeof(*v)) + len(v.chars)
	case *Function:
		return int(unsafe.Sizeof(*v)) + len(v.Values)*int(unsafe.Sizeof(Value(nil)))
	case *Native:
		return int(unsafe.Sizeof(*v))
	case *Closure:
		return int(unsafe.Sizeof(*v)) + len(v.Upvalues)*int(unsafe.Sizeof((*Upvalue)(nil)))
	case *Upvalue:
		return int(unsafe.Sizeof(*v))
	case *Class:
		return int(unsafe.Sizeof(*v))
	case *Instance:
		return int(unsafe.Sizeof(*v))
	case *BoundMethod:
		return int(unsafe.Sizeof(*v))
	default:
		return 0
	}
}
