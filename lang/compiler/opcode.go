// Package compiler compiles Lox source into a language-value-agnostic
// bytecode Prototype via a single-pass Pratt parser, emitting instructions
// directly as it parses instead of building an intermediate AST.
package compiler

import "fmt"

// Opcode identifies a single bytecode instruction. This is the stable wire
// format executed by the VM (spec section 4.6).
type Opcode byte

//nolint:revive
const (
	CONSTANT Opcode = iota // CONSTANT<c>
	NIL
	TRUE
	FALSE

	POP
	POPN // POPN<n>

	GET_LOCAL // GET_LOCAL<slot>
	SET_LOCAL // SET_LOCAL<slot>

	GET_GLOBAL    // GET_GLOBAL<c>
	DEFINE_GLOBAL // DEFINE_GLOBAL<c>
	SET_GLOBAL    // SET_GLOBAL<c>

	GET_UPVALUE // GET_UPVALUE<i>
	SET_UPVALUE // SET_UPVALUE<i>

	GET_PROPERTY // GET_PROPERTY<c>
	SET_PROPERTY // SET_PROPERTY<c>
	GET_SUPER    // GET_SUPER<c>

	EQUAL
	GREATER
	LESS
	ADD
	SUBTRACT
	MULTIPLY
	DIVIDE
	NOT
	NEGATE

	PRINT

	JUMP          // JUMP<o16>
	JUMP_IF_FALSE // JUMP_IF_FALSE<o16>
	LOOP          // LOOP<o16>

	CALL         // CALL<argc>
	INVOKE       // INVOKE<c><argc>
	SUPER_INVOKE // SUPER_INVOKE<c><argc>

	CLOSURE // CLOSURE<c> (isLocal byte, idx byte)*
	CLOSE_UPVALUE
	RETURN

	CLASS   // CLASS<c>
	INHERIT
	METHOD // METHOD<c>

	opcodeMax
)

var opcodeNames = [...]string{
	CONSTANT:      "constant",
	NIL:           "nil",
	TRUE:          "true",
	FALSE:         "false",
	POP:           "pop",
	POPN:          "popn",
	GET_LOCAL:     "get_local",
	SET_LOCAL:     "set_local",
	GET_GLOBAL:    "get_global",
	DEFINE_GLOBAL: "define_global",
	SET_GLOBAL:    "set_global",
	GET_UPVALUE:   "get_upvalue",
	SET_UPVALUE:   "set_upvalue",
	GET_PROPERTY:  "get_property",
	SET_PROPERTY:  "set_property",
	GET_SUPER:     "get_super",
	EQUAL:         "equal",
	GREATER:       "greater",
	LESS:          "less",
	ADD:           "add",
	SUBTRACT:      "subtract",
	MULTIPLY:      "multiply",
	DIVIDE:        "divide",
	NOT:           "not",
	NEGATE:        "negate",
	PRINT:         "print",
	JUMP:          "jump",
	JUMP_IF_FALSE: "jump_if_false",
	LOOP:          "loop",
	CALL:          "call",
	INVOKE:        "invoke",
	SUPER_INVOKE:  "super_invoke",
	CLOSURE:       "closure",
	CLOSE_UPVALUE: "close_upvalue",
	RETURN:        "return",
	CLASS:         "class",
	INHERIT:       "inherit",
	METHOD:        "method",
}

func (op Opcode) String() string {
	if op < opcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal opcode (%d)", byte(op))
}

// byteOperand reports whether op takes a single 1-byte operand (a constant
// index, a local/upvalue slot, or an argument count).
func byteOperand(op Opcode) bool {
	switch op {
	case CONSTANT, POPN, GET_LOCAL, SET_LOCAL, GET_GLOBAL, DEFINE_GLOBAL,
		SET_GLOBAL, GET_UPVALUE, SET_UPVALUE, GET_PROPERTY, SET_PROPERTY,
		GET_SUPER, CALL, CLOSURE, CLASS, METHOD:
		return true
	default:
		return false
	}
}

// twoByteOperand reports whether op takes a 16-bit big-endian jump offset.
func twoByteOperand(op Opcode) bool {
	switch op {
	case JUMP, JUMP_IF_FALSE, LOOP:
		return true
	default:
		return false
	}
}

// twoByteOperandPair reports whether op takes two 1-byte operands (a
// constant index followed by an argument count).
func twoByteOperandPair(op Opcode) bool {
	switch op {
	case INVOKE, SUPER_INVOKE:
		return true
	default:
		return false
	}
}

// InstructionLen returns the number of bytes occupied by an instruction for
// op, for every opcode of fixed width. CLOSURE is variable-width (its tail
// holds one (isLocal, index) byte pair per upvalue of the function it
// refers to) and callers that need its length must read the referenced
// Prototype's UpvalueCount from the constant pool instead.
func InstructionLen(op Opcode) int {
	switch {
	case op == CLOSURE:
		panic("compiler: CLOSURE instruction length depends on the referenced Prototype's upvalue count")
	case twoByteOperand(op), twoByteOperandPair(op):
		return 3
	case byteOperand(op):
		return 2
	default:
		return 1
	}
}
