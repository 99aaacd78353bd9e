package vm

import (
	"fmt"

	"github.com/mna/loxvm/lang/compiler"
	"github.com/mna/loxvm/lang/value"
)

// run executes bytecode starting from the top frame until a RETURN
// unwinds the last frame or a runtime error aborts the loop (spec section
// 4.6). frame is kept as a local pointer, re-synced from vm.frames on
// every call/return, the same "local register" discipline the teacher's
// machine.run keeps for its program counter.
func (vm *VM) run() Result {
	frame := &vm.frames[vm.frameCount-1]
	code := frame.closure.Fn.Proto.Code

	readByte := func() byte {
		b := code[frame.ip]
		frame.ip++
		return b
	}
	readU16 := func() int {
		hi, lo := code[frame.ip], code[frame.ip+1]
		frame.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return frame.closure.Fn.Values[readByte()]
	}
	readString := func() string {
		return readConstant().(*value.String).Go()
	}

	for {
		op := compiler.Opcode(readByte())
		switch op {
		case compiler.CONSTANT:
			vm.push(readConstant())

		case compiler.NIL:
			vm.push(value.NilValue)
		case compiler.TRUE:
			vm.push(value.True)
		case compiler.FALSE:
			vm.push(value.False)

		case compiler.POP:
			vm.pop()
		case compiler.POPN:
			vm.stackTop -= int(readByte())

		case compiler.GET_LOCAL:
			vm.push(vm.stack[frame.slots+int(readByte())])
		case compiler.SET_LOCAL:
			vm.stack[frame.slots+int(readByte())] = vm.peek(0)

		case compiler.GET_GLOBAL:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.push(v)
		case compiler.DEFINE_GLOBAL:
			name := readString()
			vm.globals.Put(name, vm.peek(0))
			vm.pop()
		case compiler.SET_GLOBAL:
			name := readString()
			if !vm.globals.Has(name) {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.globals.Put(name, vm.peek(0))

		case compiler.GET_UPVALUE:
			vm.push(*frame.closure.Upvalues[readByte()].Location)
		case compiler.SET_UPVALUE:
			*frame.closure.Upvalues[readByte()].Location = vm.peek(0)

		case compiler.GET_PROPERTY:
			inst, ok := vm.peek(0).(*value.Instance)
			if !ok {
				return vm.runtimeError("Only instances have properties.")
			}
			name := readString()
			if field, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(field)
				break
			}
			if !vm.bindMethod(inst.Class, name) {
				return RuntimeError
			}

		case compiler.SET_PROPERTY:
			inst, ok := vm.peek(1).(*value.Instance)
			if !ok {
				return vm.runtimeError("Only instances have fields.")
			}
			name := readString()
			inst.Fields.Put(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case compiler.GET_SUPER:
			name := readString()
			super := vm.pop().(*value.Class)
			if !vm.bindMethod(super, name) {
				return RuntimeError
			}

		case compiler.EQUAL:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case compiler.GREATER, compiler.LESS:
			res, ok := vm.numericCompare(op)
			if !ok {
				return vm.runtimeError("Operands must be numbers.")
			}
			vm.push(res)

		case compiler.ADD:
			if !vm.add() {
				return vm.runtimeError("Operands must be two numbers or two strings.")
			}
		case compiler.SUBTRACT, compiler.MULTIPLY, compiler.DIVIDE:
			res, ok := vm.numericBinary(op)
			if !ok {
				return vm.runtimeError("Operands must be numbers.")
			}
			vm.push(res)

		case compiler.NOT:
			vm.push(value.Bool(!value.Truthy(vm.pop())))
		case compiler.NEGATE:
			n, ok := vm.peek(0).(value.Number)
			if !ok {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.pop()
			vm.push(-n)

		case compiler.PRINT:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case compiler.JUMP:
			offset := readU16()
			frame.ip += offset
		case compiler.JUMP_IF_FALSE:
			offset := readU16()
			if !value.Truthy(vm.peek(0)) {
				frame.ip += offset
			}
		case compiler.LOOP:
			offset := readU16()
			frame.ip -= offset

		case compiler.CALL:
			argCount := int(readByte())
			res, ok := vm.callValue(vm.peek(argCount), argCount)
			if !ok {
				return res
			}
			frame = &vm.frames[vm.frameCount-1]
			code = frame.closure.Fn.Proto.Code

		case compiler.INVOKE:
			name := readString()
			argCount := int(readByte())
			res, ok := vm.invoke(name, argCount)
			if !ok {
				return res
			}
			frame = &vm.frames[vm.frameCount-1]
			code = frame.closure.Fn.Proto.Code

		case compiler.SUPER_INVOKE:
			name := readString()
			argCount := int(readByte())
			super := vm.pop().(*value.Class)
			res, ok := vm.invokeFromClass(super, name, argCount)
			if !ok {
				return res
			}
			frame = &vm.frames[vm.frameCount-1]
			code = frame.closure.Fn.Proto.Code

		case compiler.CLOSURE:
			fn := readConstant().(*value.Function)
			upvalues := make([]*value.Upvalue, fn.UpvalueCount)
			for i := range upvalues {
				isLocal := readByte()
				index := int(readByte())
				if isLocal != 0 {
					upvalues[i] = vm.captureUpvalue(frame.slots + index)
				} else {
					upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			closure := vm.Heap.NewClosure(fn, upvalues)
			vm.push(closure)
			vm.maybeCollect()

		case compiler.CLOSE_UPVALUE:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case compiler.RETURN:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return OK
			}
			vm.stackTop = frame.slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]
			code = frame.closure.Fn.Proto.Code

		case compiler.CLASS:
			vm.push(vm.Heap.NewClass(readString()))
			vm.maybeCollect()

		case compiler.INHERIT:
			super, ok := vm.peek(1).(*value.Class)
			if !ok {
				return vm.runtimeError("Superclass must be a class.")
			}
			sub := vm.peek(0).(*value.Class)
			super.Methods.Iter(func(name string, m *value.Closure) bool {
				sub.Methods.Put(name, m)
				return false
			})
			vm.pop() // discard the temporary subclass reference; the superclass stays bound as the "super" local

		case compiler.METHOD:
			vm.defineMethod(readString())

		default:
			return vm.runtimeError("Unknown opcode %s.", op)
		}
	}
}

// add implements the ADD opcode's dual concatenate-or-sum semantics (spec
// section 4.6, "Arithmetic semantics"). For strings, both operands are
// popped before the result is interned; this is safe because allocation
// itself never collects, and maybeCollect only runs once the result has
// been pushed (spec section 4.5, "Safety rules").
func (vm *VM) add() bool {
	b, a := vm.peek(0), vm.peek(1)
	as, aIsStr := a.(*value.String)
	bs, bIsStr := b.(*value.String)
	switch {
	case aIsStr && bIsStr:
		vm.pop()
		vm.pop()
		result := vm.Heap.Intern(as.Go() + bs.Go())
		vm.push(result)
		vm.maybeCollect()
		return true
	case isNumber(a) && isNumber(b):
		vm.pop()
		vm.pop()
		vm.push(a.(value.Number) + b.(value.Number))
		return true
	default:
		return false
	}
}

func (vm *VM) numericBinary(op compiler.Opcode) (value.Value, bool) {
	b, a := vm.pop(), vm.pop()
	an, aok := a.(value.Number)
	bn, bok := b.(value.Number)
	if !aok || !bok {
		return nil, false
	}
	switch op {
	case compiler.SUBTRACT:
		return an - bn, true
	case compiler.MULTIPLY:
		return an * bn, true
	case compiler.DIVIDE:
		return an / bn, true
	default:
		panic("vm: not a numeric binary opcode")
	}
}

func (vm *VM) numericCompare(op compiler.Opcode) (value.Value, bool) {
	b, a := vm.pop(), vm.pop()
	an, aok := a.(value.Number)
	bn, bok := b.(value.Number)
	if !aok || !bok {
		return nil, false
	}
	switch op {
	case compiler.GREATER:
		return value.Bool(an > bn), true
	case compiler.LESS:
		return value.Bool(an < bn), true
	default:
		panic("vm: not a numeric comparison opcode")
	}
}

func isNumber(v value.Value) bool {
	_, ok := v.(value.Number)
	return ok
}

// defineMethod pops a just-compiled Closure off the stack and installs it
// on the class now underneath it (spec section 4.2, "Classes" — METHOD is
// emitted once per method body, right after its CLOSURE).
func (vm *VM) defineMethod(name string) {
	method := vm.pop().(*value.Closure)
	cls := vm.peek(0).(*value.Class)
	cls.Methods.Put(name, method)
}
