// Package vm implements the stack-based bytecode interpreter: the value
// stack, call frames, globals table, and the dispatch loop that executes a
// compiled Prototype (spec section 4.6).
package vm

import (
	"fmt"
	"io"

	"github.com/dolthub/swiss"
	"github.com/mna/loxvm/lang/compiler"
	"github.com/mna/loxvm/lang/value"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// Result is the tri-valued outcome of Interpret (spec section 6).
type Result int

const (
	OK Result = iota
	CompileError
	RuntimeError
)

// callFrame records one active call: the closure being executed, the
// instruction pointer into its Prototype's code, and the base stack slot
// its locals start at.
type callFrame struct {
	closure *value.Closure
	ip      int
	slots   int
}

// VM is a single, self-contained bytecode interpreter. Every piece of
// mutable interpreter state — the value stack, the frame stack, the
// globals table, the open-upvalue list, and the heap — is a field on this
// struct rather than a package-level global, so tests can run several VMs
// independently (spec section 9, "Global mutable state").
type VM struct {
	Heap *value.Heap

	stack    [stackMax]value.Value
	stackTop int

	frames     [framesMax]callFrame
	frameCount int

	globals      *swiss.Map[string, value.Value]
	openUpvalues *value.Upvalue // sorted by descending stack address

	initString *value.String

	Stdout io.Writer
	Stderr io.Writer
}

// New returns a ready-to-use VM. stdout and stderr receive `print` output
// and runtime error traces, respectively.
func New(stdout, stderr io.Writer) *VM {
	vm := &VM{
		Heap:    value.NewHeap(),
		globals: value.NewGlobals(),
		Stdout:  stdout,
		Stderr:  stderr,
	}
	vm.initString = vm.Heap.Intern("init")
	vm.defineNative("clock", clockNative)
	return vm
}

// Interpret compiles and runs source to completion, returning the
// tri-valued outcome described in spec section 6. Compile errors and
// runtime errors are both reported to Stderr before returning.
func (vm *VM) Interpret(source string) Result {
	proto, err := compiler.Compile(source)
	if err != nil {
		fmt.Fprintln(vm.Stderr, err)
		return CompileError
	}

	fn := vm.Heap.LoadFunction(proto)
	closure := vm.Heap.NewClosure(fn, nil)
	vm.push(closure)
	vm.callClosure(closure, 0)

	return vm.run()
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// MarkRoots implements value.Roots: it marks every slot currently live on
// the value stack, every active frame's closure, every open upvalue, every
// global, and the init-method sentinel (spec section 4.5, "Root set" (a),
// (b), (c), (d), (f)). Root (e), the in-progress compiler chain, does not
// apply here: constants stay as plain Go literals until LoadFunction
// converts them, so no heap allocation — and thus no collection — can
// happen while a Prototype is being compiled (see DESIGN.md).
func (vm *VM) MarkRoots(mark func(value.Value)) {
	for i := 0; i < vm.stackTop; i++ {
		mark(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(vm.frames[i].closure)
	}
	for up := vm.openUpvalues; up != nil; up = up.Next {
		mark(up)
	}
	vm.globals.Iter(func(_ string, v value.Value) bool {
		mark(v)
		return false
	})
	if vm.initString != nil {
		mark(vm.initString)
	}
}

// maybeCollect runs a collection if the heap's trigger policy says to.
// Every allocation site reachable from the dispatch loop that can grow the
// heap calls this immediately after pushing any temporary it created onto
// the stack, so the collector never observes a half-built value (spec
// section 4.5, "Safety rules for allocation sites").
func (vm *VM) maybeCollect() {
	if vm.Heap.ShouldCollect() {
		vm.Heap.Collect(vm)
	}
}

// runtimeError formats a runtime error with a frame-by-frame stack trace,
// writes it to Stderr, and resets the stacks (spec section 4.6, "Runtime
// errors").
func (vm *VM) runtimeError(format string, args ...any) Result {
	fmt.Fprintf(vm.Stderr, format+"\n", args...)

	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		fn := fr.closure.Fn
		line := fn.Proto.GetLine(fr.ip - 1)
		name := "script"
		if fn.Name != "" {
			name = fn.Name + "()"
		}
		fmt.Fprintf(vm.Stderr, "[line %d] in %s\n", line, name)
	}

	vm.resetStack()
	return RuntimeError
}
