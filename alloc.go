package lispvm

import (
	"math"
	"math/big"

	"github.com/jcorbin/lispvm/internal/mem"
	"github.com/jcorbin/lispvm/internal/object"
)

// allocate runs alloc, collecting and retrying exactly once if the working
// pool is full. The refs in protect are held on the stack across the
// collection and updated in place; any other Ref the caller holds is stale
// once allocate returns.
func (m *Machine) allocate(alloc func() (object.Addr, error), protect ...*object.Ref) object.Addr {
	addr, err := alloc()
	if err == mem.ErrOutOfMemory {
		m.collect(protect...)
		addr, err = alloc()
	}
	if err == mem.ErrOutOfMemory {
		m.fail(ErrHeapExhausted)
	} else if err != nil {
		m.fail(err)
	}
	return addr
}

func (m *Machine) collect(protect ...*object.Ref) mem.Stats {
	for _, ref := range protect {
		m.save(*ref)
	}
	stats := m.heap.Collect(m.roots)
	for i := len(protect) - 1; i >= 0; i-- {
		*protect[i] = m.restore()
	}
	m.logf("gc", "#%v %v -> %v cells", m.heap.Collections(), stats.Before, stats.After)
	return stats
}

// roots visits the registers, then the global environment, then the stack
// from the bottom up.
func (m *Machine) roots(visit func(ref *object.Ref)) {
	visit(&m.val)
	visit(&m.expr)
	visit(&m.env)
	visit(&m.unev)
	visit(&m.proc)
	visit(&m.global)
	for i := range m.stack {
		visit(&m.stack[i])
	}
}

func (m *Machine) cons(car, cdr object.Ref) object.Ref {
	return m.pair(object.Cons, car, cdr)
}

func (m *Machine) pair(tag object.Tag, first, second object.Ref) object.Ref {
	addr := m.allocate(m.heap.AllocPair, &first, &second)
	m.heap.Store(addr, object.Cell{First: first, Second: second})
	return object.At(tag, addr)
}

// compound builds a procedure cell {params, {body, env}}.
func (m *Machine) compound(params, body, env object.Ref) object.Ref {
	addr := m.allocate(func() (object.Addr, error) {
		return m.heap.AllocCells(2)
	}, &params, &body, &env)
	m.heap.Store(addr, object.Cell{First: params, Second: object.At(object.Cons, addr+1)})
	m.heap.Store(addr+1, object.Cell{First: body, Second: env})
	return object.At(object.Compound, addr)
}

func (m *Machine) makeString(data []byte) object.Ref {
	addr := m.allocate(func() (object.Addr, error) {
		return m.heap.AllocBytes(len(data))
	})
	m.heap.StoreBytes(addr, data)
	return object.At(object.String, addr)
}

func (m *Machine) makeVector(n int) object.Ref {
	if n < 0 {
		m.raise(IndexError{Op: "make-vector", Index: int64(n)})
	}
	addr := m.allocate(func() (object.Addr, error) {
		return m.heap.AllocVector(n)
	})
	return object.At(object.Vector, addr)
}

func (m *Machine) makeReal(f float64) object.Ref {
	addr := m.allocate(m.heap.AllocPair)
	m.heap.Store(addr, object.Cell{First: object.Int(int64(math.Float64bits(f)))})
	return object.At(object.Real, addr)
}

const limbBits = 32

// makeInteger stores z as a fixnum when it fits, else as a bignum chain: a
// sign cell followed by 32-bit limbs, least significant first.
func (m *Machine) makeInteger(z *big.Int) object.Ref {
	if z.IsInt64() {
		return object.Int(z.Int64())
	}
	var limbs []int64
	mag := new(big.Int).Abs(z)
	mask := big.NewInt(1<<limbBits - 1)
	for mag.Sign() > 0 {
		limbs = append(limbs, new(big.Int).And(mag, mask).Int64())
		mag.Rsh(mag, limbBits)
	}
	addr := m.allocate(func() (object.Addr, error) {
		return m.heap.AllocCells(uint(1 + len(limbs)))
	})
	link := object.Null
	for i := len(limbs) - 1; i >= 0; i-- {
		at := addr + 1 + object.Addr(i)
		m.heap.Store(at, object.Cell{First: object.Int(limbs[i]), Second: link})
		link = object.At(object.Bignum, at)
	}
	m.heap.Store(addr, object.Cell{First: object.Int(int64(z.Sign())), Second: link})
	return object.At(object.Bignum, addr)
}

func (m *Machine) bignum(ref object.Ref) *big.Int {
	head := m.heap.Load(ref.Addr())
	z := new(big.Int)
	var shift uint
	for link := head.Second; !link.IsNull(); {
		cell := m.heap.Load(link.Addr())
		limb := new(big.Int).SetInt64(cell.First.Int())
		z.Or(z, limb.Lsh(limb, shift))
		shift += limbBits
		link = cell.Second
	}
	if head.First.Int() < 0 {
		z.Neg(z)
	}
	return z
}

func (m *Machine) real(ref object.Ref) float64 {
	return math.Float64frombits(uint64(m.heap.Load(ref.Addr()).First.Int()))
}
