package vm_test

import (
	"bytes"
	"testing"

	"github.com/mna/loxvm/lang/vm"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, source string) (stdout, stderr string, result vm.Result) {
	t.Helper()
	var out, errOut bytes.Buffer
	m := vm.New(&out, &errOut)
	result = m.Interpret(source)
	return out.String(), errOut.String(), result
}

func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		desc string
		src  string
		want string
	}{
		{"arithmetic precedence", `print 1 + 2 * 3;`, "7\n"},
		{"string concatenation", `var a = "foo"; var b = "bar"; print a + b;`, "foobar\n"},
		{"closures capture by reference", `
			fun make(n) { fun inc() { n = n + 1; return n; } return inc; }
			var c = make(10);
			print c();
			print c();
			print c();
		`, "11\n12\n13\n"},
		{"inheritance and super", `
			class A { greet() { print "hi"; } }
			class B < A { greet() { super.greet(); print "bye"; } }
			B().greet();
		`, "hi\nbye\n"},
		{"init and fields", `
			class Box { init(v) { this.v = v; } }
			var b = Box(42);
			print b.v;
		`, "42\n"},
		{"for loop accumulation", `
			var s = 0;
			for (var i = 1; i <= 100; i = i + 1) s = s + i;
			print s;
		`, "5050\n"},
	}

	for _, tt := range cases {
		stdout, stderr, result := run(t, tt.src)
		require.Equal(t, vm.OK, result, tt.desc)
		require.Empty(t, stderr, tt.desc)
		require.Equal(t, tt.want, stdout, tt.desc)
	}
}

func TestNegativeScenarios(t *testing.T) {
	cases := []struct {
		desc   string
		src    string
		result vm.Result
		errSub string
	}{
		{"self-referencing local initializer", `{ var a = a; }`, vm.CompileError, "Can't read local variable in its own initialiser"},
		{"top level return", `return 1;`, vm.CompileError, "Can't return from top-level code"},
		{"self inheriting class", `class Foo < Foo {}`, vm.CompileError, "A class can't inherit from itself"},
		{"string plus number", `"a" + 1;`, vm.RuntimeError, "Operands must be two numbers or two strings"},
		{"undefined global call", `undefined();`, vm.RuntimeError, "Undefined variable 'undefined'"},
	}

	for _, tt := range cases {
		_, stderr, result := run(t, tt.src)
		require.Equal(t, tt.result, result, tt.desc)
		require.Contains(t, stderr, tt.errSub, tt.desc)
	}
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	_, stderr, result := run(t, `fun f(a, b) { return a + b; } f(1);`)
	require.Equal(t, vm.RuntimeError, result)
	require.Contains(t, stderr, "Expected 2 arguments but got 1")
}

func TestDivisionByZeroProducesInfinity(t *testing.T) {
	stdout, stderr, result := run(t, `print 1 / 0;`)
	require.Equal(t, vm.OK, result)
	require.Empty(t, stderr)
	require.Equal(t, "+Inf\n", stdout)
}

func TestGlobalAssignmentRequiresPriorDefinition(t *testing.T) {
	_, stderr, result := run(t, `x = 1;`)
	require.Equal(t, vm.RuntimeError, result)
	require.Contains(t, stderr, "Undefined variable 'x'")
}

func TestStressModeMatchesNormalModeOutput(t *testing.T) {
	src := `
		class Node { init(v, n) { this.v = v; this.n = n; } }
		fun sum(n) { if (n == nil) return 0; return n.v + sum(n.n); }
		var list = Node(1, Node(2, Node(3, nil)));
		print sum(list);
	`

	var normalOut, normalErr bytes.Buffer
	normal := vm.New(&normalOut, &normalErr)
	normalResult := normal.Interpret(src)

	var stressOut, stressErr bytes.Buffer
	stressed := vm.New(&stressOut, &stressErr)
	stressed.Heap.Stress = true
	stressResult := stressed.Interpret(src)

	require.Equal(t, normalResult, stressResult)
	require.Equal(t, normalOut.String(), stressOut.String())
	require.Equal(t, "6\n", normalOut.String())
}
