package vm

import (
	"time"

	"github.com/mna/loxvm/lang/value"
)

var processStart = time.Now()

// clockNative implements the single built-in `clock()`, returning seconds
// since process start (spec section 6, "Native functions").
func clockNative(args []value.Value) (value.Value, error) {
	return value.Number(time.Since(processStart).Seconds()), nil
}

// defineNative registers a native function as a global. Natives are
// interned/allocated once at VM construction time, long before any
// collection can be triggered, so no GC safety dance is needed here.
func (vm *VM) defineNative(name string, fn value.NativeFn) {
	native := vm.Heap.NewNative(name, fn)
	vm.globals.Put(name, native)
}
