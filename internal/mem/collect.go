package mem

import "github.com/jcorbin/lispvm/internal/object"

// Stats describes one completed collection.
type Stats struct {
	Before uint // live bound before collecting
	After  uint // live bound after collecting
}

// Collect copies everything reachable from roots into the free pool, then
// swaps the pools. The roots function must call visit with a pointer to every
// root reference; each is rewritten in place to its new location.
//
// Relocated objects leave a broken heart at their old address, so shared and
// cyclic structure is copied exactly once.
func (h *Heap) Collect(roots func(visit func(ref *object.Ref))) Stats {
	stats := Stats{Before: uint(h.used)}

	c := collector{
		from: &h.pools[h.working],
		to:   &h.pools[1-h.working],
	}
	roots(func(ref *object.Ref) {
		*ref = c.trace(*ref)
	})

	h.working = 1 - h.working
	h.used = c.next
	h.collections++

	stats.After = uint(h.used)
	return stats
}

type collector struct {
	from *Cells
	to   *Cells
	next object.Addr
}

func (c *collector) trace(ref object.Ref) object.Ref {
	switch tag := ref.Tag(); {
	case tag.IsConsLike():
		return c.traceChain(ref)
	case tag.IsLinear():
		return c.traceLinear(ref)
	case tag == object.String:
		return c.traceBytes(ref)
	case tag == object.Vector:
		return c.traceVector(ref)
	default:
		return ref
	}
}

// traceChain walks the Second chain iteratively, recursing only into First.
func (c *collector) traceChain(ref object.Ref) object.Ref {
	var ch chainer
	for {
		old := c.load(ref.Addr())
		if to, ok := old.Forwarded(); ok {
			ch.link(c, ref.WithAddr(to))
			return ch.head
		}

		// NOTE the marker must be set before tracing First, which may lead
		// back here through shared structure.
		to := c.alloc(1)
		c.forward(ref.Addr(), to)
		ch.link(c, ref.WithAddr(to))
		c.stor(to, object.Cell{
			First:  c.trace(old.First),
			Second: old.Second,
		})

		if next := old.Second; next.Tag().IsConsLike() {
			ch.prev, ch.linked = to, true
			ref = next
			continue
		}
		c.setSecond(to, c.trace(old.Second))
		return ch.head
	}
}

// traceLinear copies a chain of atomic payload cells verbatim.
func (c *collector) traceLinear(ref object.Ref) object.Ref {
	var ch chainer
	for !ref.IsNull() {
		old := c.load(ref.Addr())
		if to, ok := old.Forwarded(); ok {
			ch.link(c, ref.WithAddr(to))
			break
		}
		to := c.alloc(1)
		c.forward(ref.Addr(), to)
		c.stor(to, old)
		ch.link(c, ref.WithAddr(to))
		ch.prev, ch.linked = to, true
		ref = old.Second
	}
	return ch.head
}

func (c *collector) traceBytes(ref object.Ref) object.Ref {
	base := ref.Addr()
	hdr := c.load(base)
	if to, ok := hdr.Forwarded(); ok {
		return ref.WithAddr(to)
	}
	n := StringCells(int(hdr.First.Int()))
	to := c.alloc(n)
	for i := object.Addr(0); i < object.Addr(n); i++ {
		c.stor(to+i, c.load(base+i))
	}
	c.forward(base, to)
	return ref.WithAddr(to)
}

func (c *collector) traceVector(ref object.Ref) object.Ref {
	base := ref.Addr()
	hdr := c.load(base)
	if to, ok := hdr.Forwarded(); ok {
		return ref.WithAddr(to)
	}
	count := int(hdr.First.Int())
	n := VectorCells(count)
	to := c.alloc(n)
	for i := object.Addr(0); i < object.Addr(n); i++ {
		c.stor(to+i, object.Cell{})
	}
	c.forward(base, to)
	c.setSlot(to, 0, hdr.First)
	for k := 1; k <= count; k++ {
		elem := hdr.Second
		if k > 1 {
			elem = slotOf(c.load(base+object.Addr(k/2)), k)
		}
		c.setSlot(to, k, c.trace(elem))
	}
	return ref.WithAddr(to)
}

// chainer tracks where the next relocated link of a chain must be written:
// either the chain's head, or the Second field of the previously copied cell.
type chainer struct {
	head   object.Ref
	prev   object.Addr
	linked bool
}

func (ch *chainer) link(c *collector, ref object.Ref) {
	if ch.linked {
		c.setSecond(ch.prev, ref)
	} else {
		ch.head = ref
	}
}

func (c *collector) alloc(n uint) object.Addr {
	addr := c.next
	c.next += object.Addr(n)
	return addr
}

func (c *collector) load(addr object.Addr) object.Cell {
	cell, err := c.from.Load(addr)
	if err != nil {
		panic(err)
	}
	return cell
}

func (c *collector) stor(addr object.Addr, cell object.Cell) {
	if err := c.to.Stor(addr, cell); err != nil {
		panic(err)
	}
}

func (c *collector) forward(old, to object.Addr) {
	if err := c.from.Stor(old, object.Forward(to)); err != nil {
		panic(err)
	}
}

func (c *collector) setSecond(addr object.Addr, ref object.Ref) {
	cell, err := c.to.Load(addr)
	if err != nil {
		panic(err)
	}
	cell.Second = ref
	c.stor(addr, cell)
}

func (c *collector) setSlot(base object.Addr, i int, ref object.Ref) {
	addr := base + object.Addr(i/2)
	cell, err := c.to.Load(addr)
	if err != nil {
		panic(err)
	}
	c.stor(addr, withSlot(cell, i, ref))
}
