package value_test

import (
	"testing"

	"github.com/mna/loxvm/lang/compiler"
	"github.com/mna/loxvm/lang/value"
	"github.com/stretchr/testify/require"
)

type rootList []value.Value

func (r rootList) MarkRoots(mark func(value.Value)) {
	for _, v := range r {
		mark(v)
	}
}

func TestInternReturnsCanonicalPointer(t *testing.T) {
	h := value.NewHeap()
	a := h.Intern("same")
	b := h.Intern("same")
	require.Same(t, a, b)

	before := h.BytesAllocated()
	h.Intern("same")
	require.Equal(t, before, h.BytesAllocated())
}

func TestCollectFreesUnreachableStrings(t *testing.T) {
	h := value.NewHeap()
	kept := h.Intern("kept")
	h.Intern("garbage")

	h.Collect(rootList{kept})

	// the table no longer resolves "garbage" to the freed object: interning
	// it again allocates a brand new String.
	again := h.Intern("garbage")
	require.NotNil(t, again)
	still := h.Intern("kept")
	require.Same(t, kept, still)
}

func TestCollectReclaimsBytesAllocated(t *testing.T) {
	h := value.NewHeap()
	h.Intern("temporary")
	require.Greater(t, h.BytesAllocated(), 0)

	h.Collect(rootList{})
	require.Equal(t, 0, h.BytesAllocated())
}

func TestLoadFunctionConvertsConstantPool(t *testing.T) {
	proto, err := compiler.Compile(`
		fun outer(n) {
			fun inner() {
				return n + "!";
			}
			return inner;
		}
	`)
	require.NoError(t, err)

	h := value.NewHeap()
	fn := h.LoadFunction(proto)
	require.Equal(t, "", fn.Name)

	var outerFn *value.Function
	for _, v := range fn.Values {
		if f, ok := v.(*value.Function); ok {
			outerFn = f
		}
	}
	require.NotNil(t, outerFn)
	require.Equal(t, "outer", outerFn.Name)

	var innerFn *value.Function
	for _, v := range outerFn.Values {
		if f, ok := v.(*value.Function); ok {
			innerFn = f
		}
	}
	require.NotNil(t, innerFn)
	require.Equal(t, "inner", innerFn.Name)

	var bangString *value.String
	for _, v := range innerFn.Values {
		if s, ok := v.(*value.String); ok {
			bangString = s
		}
	}
	require.NotNil(t, bangString)
	require.Equal(t, "!", bangString.Go())

	// re-interning the same content elsewhere on the same heap resolves to
	// the identical object (spec section 4.4).
	require.Same(t, bangString, h.Intern("!"))
}
