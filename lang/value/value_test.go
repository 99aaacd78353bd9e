package value_test

import (
	"testing"

	"github.com/mna/loxvm/lang/value"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	require.False(t, value.Truthy(value.NilValue))
	require.False(t, value.Truthy(value.False))
	require.True(t, value.Truthy(value.True))
	require.True(t, value.Truthy(value.Number(0)))
	require.True(t, value.Truthy(value.Number(-1)))
}

func TestEqual(t *testing.T) {
	require.True(t, value.Equal(value.NilValue, value.NilValue))
	require.True(t, value.Equal(value.Number(1), value.Number(1)))
	require.False(t, value.Equal(value.Number(1), value.Number(2)))
	require.False(t, value.Equal(value.Number(1), value.NilValue))
	require.True(t, value.Equal(value.True, value.True))
	require.False(t, value.Equal(value.True, value.False))

	h := value.NewHeap()
	a := h.Intern("hi")
	b := h.Intern("hi")
	c := h.Intern("bye")
	require.True(t, value.Equal(a, b), "interned strings with equal content compare equal")
	require.False(t, value.Equal(a, c))
}

func TestNumberString(t *testing.T) {
	require.Equal(t, "3", value.Number(3).String())
	require.Equal(t, "-1", value.Number(-1).String())
	require.Equal(t, "1.5", value.Number(1.5).String())
}
