package compiler_test

import (
	"testing"

	"github.com/mna/loxvm/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestCompileSimpleArithmetic(t *testing.T) {
	proto, err := compiler.Compile("print 1 + 2 * 3;")
	require.NoError(t, err)
	require.NotNil(t, proto)

	ops := opcodesOf(t, proto)
	require.Equal(t, []compiler.Opcode{
		compiler.CONSTANT, compiler.CONSTANT, compiler.CONSTANT,
		compiler.MULTIPLY, compiler.ADD, compiler.PRINT,
		compiler.NIL, compiler.RETURN,
	}, ops)
	require.Equal(t, []any{1.0, 2.0, 3.0}, proto.Constants)
}

func TestCompileComparisonDesugaring(t *testing.T) {
	cases := []struct {
		src  string
		want []compiler.Opcode
	}{
		{"1 != 2;", []compiler.Opcode{compiler.CONSTANT, compiler.CONSTANT, compiler.EQUAL, compiler.NOT, compiler.POP}},
		{"1 >= 2;", []compiler.Opcode{compiler.CONSTANT, compiler.CONSTANT, compiler.LESS, compiler.NOT, compiler.POP}},
		{"1 <= 2;", []compiler.Opcode{compiler.CONSTANT, compiler.CONSTANT, compiler.GREATER, compiler.NOT, compiler.POP}},
	}
	for _, tt := range cases {
		proto, err := compiler.Compile(tt.src)
		require.NoError(t, err, tt.src)
		ops := opcodesOf(t, proto)
		require.Equal(t, append(tt.want, compiler.NIL, compiler.RETURN), ops, tt.src)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		desc string
		src  string
		want string
	}{
		{"self-referencing local initializer", "{ var a = a; }", "Can't read local variable in its own initialiser"},
		{"top level return", "return 1;", "Can't return from top-level code"},
		{"self inheriting class", "class Foo < Foo {}", "A class can't inherit from itself"},
		{"invalid assignment target", "a + b = c;", "Invalid assignment target"},
		{"return value from initializer", "class A { init() { return 1; } }", "Can't return a value from an initialiser"},
		{"this outside class", "print this;", "Can't use 'this' outside of a class"},
		{"super outside class", "print super.foo;", "Can't use 'super' outside of a class"},
		{"unterminated string", `"oops`, "unterminated string"},
	}
	for _, tt := range cases {
		_, err := compiler.Compile(tt.src)
		require.Error(t, err, tt.desc)
		require.ErrorContains(t, err, tt.want, tt.desc)
	}
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	proto, err := compiler.Compile(`
		fun make(n) {
			fun inc() {
				n = n + 1;
				return n;
			}
			return inc;
		}
	`)
	require.NoError(t, err)
	require.Len(t, proto.Constants, 1)
	inner, ok := proto.Constants[0].(*compiler.Prototype)
	require.True(t, ok)
	require.Equal(t, "make", inner.Name)
	// the "make" function's constant pool holds the nested "inc" prototype
	var nested *compiler.Prototype
	for _, c := range inner.Constants {
		if p, ok := c.(*compiler.Prototype); ok {
			nested = p
		}
	}
	require.NotNil(t, nested)
	require.Equal(t, "inc", nested.Name)
	require.Equal(t, 1, nested.UpvalueCount)
	require.True(t, nested.Upvalues[0].IsLocal)
}

func opcodesOf(t *testing.T, proto *compiler.Prototype) []compiler.Opcode {
	t.Helper()
	var ops []compiler.Opcode
	code := proto.Code
	for i := 0; i < len(code); {
		op := compiler.Opcode(code[i])
		ops = append(ops, op)
		i += compiler.InstructionLen(op)
	}
	return ops
}
