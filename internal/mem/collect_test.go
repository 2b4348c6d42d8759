package mem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/lispvm/internal/mem"
	"github.com/jcorbin/lispvm/internal/object"
)

type testHeap struct {
	*mem.Heap
	t *testing.T
}

func newTestHeap(t *testing.T, capacity uint) testHeap {
	return testHeap{mem.NewHeap(capacity), t}
}

func (h testHeap) cons(a, d object.Ref) object.Ref {
	addr, err := h.AllocPair()
	require.NoError(h.t, err, "cons")
	h.Store(addr, object.Cell{First: a, Second: d})
	return object.At(object.Cons, addr)
}

func (h testHeap) list(values ...int64) object.Ref {
	ref := object.Null
	for i := len(values) - 1; i >= 0; i-- {
		ref = h.cons(object.Int(values[i]), ref)
	}
	return ref
}

func (h testHeap) ints(ref object.Ref) (values []int64) {
	for ; !ref.IsNull(); ref = h.Load(ref.Addr()).Second {
		values = append(values, h.Load(ref.Addr()).First.Int())
	}
	return values
}

func (h testHeap) car(ref object.Ref) object.Ref { return h.Load(ref.Addr()).First }
func (h testHeap) cdr(ref object.Ref) object.Ref { return h.Load(ref.Addr()).Second }

func (h testHeap) setCar(ref, val object.Ref) {
	c := h.Load(ref.Addr())
	c.First = val
	h.Store(ref.Addr(), c)
}

func (h testHeap) setCdr(ref, val object.Ref) {
	c := h.Load(ref.Addr())
	c.Second = val
	h.Store(ref.Addr(), c)
}

func (h testHeap) str(s string) object.Ref {
	addr, err := h.AllocBytes(len(s))
	require.NoError(h.t, err, "str")
	h.StoreBytes(addr, []byte(s))
	return object.At(object.String, addr)
}

func (h testHeap) collect(roots ...*object.Ref) mem.Stats {
	return h.Collect(func(visit func(*object.Ref)) {
		for _, root := range roots {
			visit(root)
		}
	})
}

func TestCollectList(t *testing.T) {
	h := newTestHeap(t, 64)
	h.list(9, 9, 9, 9) // garbage
	lst := h.list(1, 2, 3)
	h.list(8, 8) // more garbage

	stats := h.collect(&lst)
	assert.Equal(t, mem.Stats{Before: 9, After: 3}, stats)
	assert.Equal(t, []int64{1, 2, 3}, h.ints(lst))
	assert.Equal(t, object.Cons, lst.Tag())
	assert.Equal(t, 1, h.Collections())

	// collecting again moves everything back to the first pool intact
	h.collect(&lst)
	assert.Equal(t, []int64{1, 2, 3}, h.ints(lst))
	assert.Equal(t, uint(3), h.Used())
}

func TestCollectShared(t *testing.T) {
	h := newTestHeap(t, 64)
	x := h.list(7)
	a := h.cons(x, x)
	b := a

	h.collect(&a, &b)
	assert.Equal(t, uint(2), h.Used(), "shared node must be copied once")
	assert.True(t, object.Eq(a, b), "roots to the same object must stay identical")
	assert.True(t, object.Eq(h.car(a), h.cdr(a)), "shared head and tail must stay identical")
	assert.Equal(t, []int64{7}, h.ints(h.car(a)))
}

func TestCollectCycles(t *testing.T) {
	t.Run("through second", func(t *testing.T) {
		h := newTestHeap(t, 64)
		a := h.cons(object.Int(1), object.Null)
		b := h.cons(object.Int(2), a)
		h.setCdr(a, b)

		h.collect(&a)
		require.Equal(t, uint(2), h.Used())
		assert.Equal(t, object.Int(1), h.car(a))
		assert.Equal(t, object.Int(2), h.car(h.cdr(a)))
		assert.True(t, object.Eq(a, h.cdr(h.cdr(a))), "cycle must close on the new head")
	})

	t.Run("through first", func(t *testing.T) {
		h := newTestHeap(t, 64)
		a := h.cons(object.Null, object.Int(5))
		h.setCar(a, a)

		h.collect(&a)
		require.Equal(t, uint(1), h.Used())
		assert.True(t, object.Eq(a, h.car(a)))
		assert.Equal(t, object.Int(5), h.cdr(a))
	})

	t.Run("first points at next link", func(t *testing.T) {
		h := newTestHeap(t, 64)
		tail := h.list(3, 4)
		head := h.cons(tail, tail)

		h.collect(&head)
		require.Equal(t, uint(3), h.Used())
		assert.True(t, object.Eq(h.car(head), h.cdr(head)))
		assert.Equal(t, []int64{3, 4}, h.ints(h.cdr(head)))
	})
}

func TestCollectVectorAndString(t *testing.T) {
	h := newTestHeap(t, 64)
	h.list(1, 2, 3, 4, 5)
	s := h.str("a string spanning several cells")

	addr, err := h.AllocVector(3)
	require.NoError(t, err)
	vec := object.At(object.Vector, addr)
	h.SetSlot(addr, 1, vec)
	h.SetSlot(addr, 2, s)
	h.SetSlot(addr, 3, s)

	h.collect(&vec)
	wantUsed := mem.VectorCells(3) + mem.StringCells(len("a string spanning several cells"))
	require.Equal(t, wantUsed, h.Used(), "each object copied exactly once")

	base := vec.Addr()
	assert.Equal(t, object.Int(3), h.Slot(base, 0))
	assert.True(t, object.Eq(vec, h.Slot(base, 1)), "self reference must be rewritten")
	assert.True(t, object.Eq(h.Slot(base, 2), h.Slot(base, 3)), "shared string copied once")
	assert.Equal(t, []byte("a string spanning several cells"), h.LoadBytes(h.Slot(base, 2).Addr()))
}

func TestCollectLinear(t *testing.T) {
	h := newTestHeap(t, 64)
	h.list(0, 0)

	// sign cell followed by two limbs
	cells := make([]object.Addr, 3)
	for i := range cells {
		addr, err := h.AllocPair()
		require.NoError(t, err)
		cells[i] = addr
	}
	h.Store(cells[0], object.Cell{First: object.Int(-1), Second: object.At(object.Bignum, cells[1])})
	h.Store(cells[1], object.Cell{First: object.Int(0xdead), Second: object.At(object.Bignum, cells[2])})
	h.Store(cells[2], object.Cell{First: object.Int(0xbeef), Second: object.Null})
	big := object.At(object.Bignum, cells[0])
	pair := h.cons(big, big)

	h.collect(&pair, &big)
	require.Equal(t, uint(4), h.Used())
	assert.True(t, object.Eq(big, h.car(pair)))
	assert.True(t, object.Eq(big, h.cdr(pair)))

	var limbs []int64
	for ref := big; !ref.IsNull(); ref = h.cdr(ref) {
		assert.Equal(t, object.Bignum, ref.Tag())
		limbs = append(limbs, h.car(ref).Int())
	}
	assert.Equal(t, []int64{-1, 0xdead, 0xbeef}, limbs)
}

func TestCollectImmediates(t *testing.T) {
	h := newTestHeap(t, 8)
	roots := []object.Ref{object.Int(-3), object.Sym(2), object.Char('x'), object.True, object.Null, object.Prim(4)}
	want := append([]object.Ref(nil), roots...)
	ptrs := make([]*object.Ref, len(roots))
	for i := range roots {
		ptrs[i] = &roots[i]
	}
	h.collect(ptrs...)
	assert.Equal(t, want, roots)
	assert.Equal(t, uint(0), h.Used())
}

func TestCollectLongList(t *testing.T) {
	const n = 100000
	h := newTestHeap(t, 2*n)
	values := make([]int64, n)
	for i := range values {
		values[i] = int64(i)
	}
	lst := h.list(values...)
	h.list(values[:n/2]...)

	h.collect(&lst)
	require.Equal(t, uint(n), h.Used())
	assert.Equal(t, values, h.ints(lst))
}
