package vm

import "github.com/mna/loxvm/lang/value"

// callValue implements CALL's callee dispatch (spec section 4.6, "Calls
// and frames"): the value at stack[-argc-1] may be a Closure, a Class, a
// BoundMethod, a Native, or — a runtime error — anything else.
func (vm *VM) callValue(callee value.Value, argCount int) (Result, bool) {
	switch c := callee.(type) {
	case *value.Closure:
		return vm.callClosure(c, argCount)
	case *value.Class:
		calleeSlot := vm.stackTop - argCount - 1
		vm.stack[calleeSlot] = vm.Heap.NewInstance(c)
		vm.maybeCollect()
		if init, ok := c.Methods.Get(vm.initString.Go()); ok {
			return vm.callClosure(init, argCount)
		}
		if argCount != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d.", argCount), false
		}
		return OK, true
	case *value.BoundMethod:
		vm.stack[vm.stackTop-argCount-1] = c.Receiver
		return vm.callClosure(c.Method, argCount)
	case *value.Native:
		args := vm.stack[vm.stackTop-argCount : vm.stackTop]
		result, err := c.Fn(args)
		if err != nil {
			return vm.runtimeError("%s", err.Error()), false
		}
		vm.stackTop -= argCount + 1
		vm.push(result)
		vm.maybeCollect()
		return OK, true
	default:
		return vm.runtimeError("Can only call functions and classes."), false
	}
}

// callClosure pushes a new call frame for closure, after checking arity
// and frame-stack depth (spec section 4.6, "Calls and frames"). The
// returned bool is false when a runtime error aborted the call.
func (vm *VM) callClosure(closure *value.Closure, argCount int) (Result, bool) {
	if argCount != closure.Fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Fn.Arity, argCount), false
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow."), false
	}

	vm.frames[vm.frameCount] = callFrame{
		closure: closure,
		ip:      0,
		slots:   vm.stackTop - argCount - 1,
	}
	vm.frameCount++
	return OK, true
}

// invoke fuses a property lookup with a call (spec section 4.6, "Property
// access", INVOKE): if name is a field holding a callable, it is called as
// a plain value; otherwise the class's method is called with the receiver
// already in slot 0, with no BoundMethod allocation.
func (vm *VM) invoke(name string, argCount int) (Result, bool) {
	receiver := vm.peek(argCount)
	inst, ok := receiver.(*value.Instance)
	if !ok {
		return vm.runtimeError("Only instances have properties."), false
	}

	if field, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(cls *value.Class, name string, argCount int) (Result, bool) {
	method, ok := cls.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name), false
	}
	return vm.callClosure(method, argCount)
}

// bindMethod looks up name on cls, binds it to the value on top of the
// stack (the instance), and replaces that value with the resulting
// BoundMethod (spec section 4.6, "Property access").
func (vm *VM) bindMethod(cls *value.Class, name string) bool {
	method, ok := cls.Methods.Get(name)
	if !ok {
		vm.runtimeError("Undefined property '%s'.", name)
		return false
	}
	bound := vm.Heap.NewBoundMethod(vm.peek(0), method)
	vm.pop()
	vm.push(bound)
	vm.maybeCollect()
	return true
}

// captureUpvalue returns the (possibly new) open Upvalue for the stack
// slot at index local, reusing an existing one if the open-upvalue list
// already has one for that exact slot (spec section 4.6, "Functions,
// closures, upvalues"). The list stays sorted by descending stack address
// so the search can stop as soon as it passes the target slot.
func (vm *VM) captureUpvalue(local int) *value.Upvalue {
	var prev *value.Upvalue
	up := vm.openUpvalues
	for up != nil && up.Slot > local {
		prev = up
		up = up.Next
	}
	if up != nil && up.Slot == local {
		return up
	}

	created := vm.Heap.NewUpvalue(&vm.stack[local], local)
	created.Next = up
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	vm.maybeCollect()
	return created
}

// closeUpvalues closes every open upvalue at or above the stack slot
// lastSlot, copying each captured value out of the stack and detaching it
// from the open-upvalue list (spec section 4.6, "Return").
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= lastSlot {
		up := vm.openUpvalues
		up.Close()
		vm.openUpvalues = up.Next
	}
}
