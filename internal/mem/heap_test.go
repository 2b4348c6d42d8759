package mem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/lispvm/internal/mem"
	"github.com/jcorbin/lispvm/internal/object"
)

func TestLayout(t *testing.T) {
	for _, tc := range []struct {
		count   int
		str     uint
		vec     uint
		comment string
	}{
		{0, 1, 1, "header only"},
		{1, 1, 1, "header + 1 slot"},
		{8, 1, 5, "8 bytes fit the header's second slot"},
		{9, 2, 5, ""},
		{24, 2, 13, "header + 3 byte slots"},
		{25, 3, 13, ""},
	} {
		assert.Equal(t, tc.str, mem.StringCells(tc.count), "StringCells(%v) %v", tc.count, tc.comment)
		assert.Equal(t, tc.vec, mem.VectorCells(tc.count), "VectorCells(%v) %v", tc.count, tc.comment)
	}
}

func TestAlloc(t *testing.T) {
	h := mem.NewHeap(8)
	require.Equal(t, uint(8), h.Capacity())

	a, err := h.AllocPair()
	require.NoError(t, err)
	require.Equal(t, object.Addr(0), a)

	b, err := h.AllocCells(3)
	require.NoError(t, err)
	require.Equal(t, object.Addr(1), b, "bump allocation must be contiguous")
	require.Equal(t, uint(4), h.Used())

	_, err = h.AllocCells(5)
	require.Equal(t, mem.ErrOutOfMemory, err, "5 cells cannot fit in the remaining 4")
	require.Equal(t, uint(4), h.Used(), "failed allocation must not move the bump pointer")

	_, err = h.AllocCells(4)
	require.NoError(t, err, "exactly the remaining capacity must fit")
	_, err = h.AllocPair()
	require.Equal(t, mem.ErrOutOfMemory, err)
}

func TestCapacityLimit(t *testing.T) {
	assert.Equal(t, uint(mem.MaxCapacity), mem.NewHeap(mem.MaxCapacity).Capacity(), "pages are only allocated on demand")
	over := uint(mem.MaxCapacity)
	if over++; over == 0 {
		t.Skip("uint cannot exceed MaxCapacity on this platform")
	}
	assert.Panics(t, func() { mem.NewHeap(over) })
}

func TestBytes(t *testing.T) {
	h := mem.NewHeap(64)
	data := []byte("hello, cheney world")
	base, err := h.AllocBytes(len(data))
	require.NoError(t, err)
	h.StoreBytes(base, data)

	assert.Equal(t, data, h.LoadBytes(base))
	assert.Equal(t, int64(len(data)), h.Slot(base, 0).Int())
	for i := range data {
		assert.Equal(t, data[i], h.ByteAt(base, i), "byte %v", i)
	}

	empty, err := h.AllocBytes(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, h.LoadBytes(empty))
}

func TestVectorSlots(t *testing.T) {
	h := mem.NewHeap(64)
	base, err := h.AllocVector(4)
	require.NoError(t, err)
	for i := 1; i <= 4; i++ {
		assert.Equal(t, object.Null, h.Slot(base, i), "fresh slot %v", i)
		h.SetSlot(base, i, object.Int(int64(10*i)))
	}
	for i := 1; i <= 4; i++ {
		assert.Equal(t, object.Int(int64(10*i)), h.Slot(base, i))
	}
	assert.Equal(t, object.Int(4), h.Slot(base, 0))
}

func TestDanglingLoadPanics(t *testing.T) {
	h := mem.NewHeap(8)
	assert.PanicsWithValue(t, mem.BoundError{Addr: 0, Bound: 0}, func() {
		h.Load(0)
	})
}
