// Package mem implements the two-pool cell heap, its bump allocator, and the
// copying collector that moves live data between the pools.
package mem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/jcorbin/lispvm/internal/object"
)

// DefaultCapacity is the default number of cells in each pool.
const DefaultCapacity = 1 << 20

// MaxCapacity is the largest pool that object.Addr can span.
const MaxCapacity = math.MaxUint32

// ErrOutOfMemory is returned by allocation when the working pool's remaining
// capacity is too small; only a collection can resolve it.
var ErrOutOfMemory = errors.New("out of memory")

// BoundError indicates a dereference past the working pool's live bound; it
// is only ever raised as a panic, since it means a stale reference survived a
// collection.
type BoundError struct {
	Addr  object.Addr
	Bound object.Addr
}

func (err BoundError) Error() string {
	return fmt.Sprintf("dangling reference @%v past live bound %v", err.Addr, err.Bound)
}

// Heap holds the working and free pools. All addresses handed out refer to
// the working pool; Collect swaps the roles.
type Heap struct {
	pools    [2]Cells
	working  int
	used     object.Addr
	capacity uint

	collections int
}

// NewHeap creates a heap whose pools each hold capacity cells; it panics if
// capacity exceeds MaxCapacity.
func NewHeap(capacity uint) *Heap {
	if capacity == 0 {
		capacity = DefaultCapacity
	} else if uint64(capacity) > MaxCapacity {
		panic(fmt.Sprintf("mem: heap capacity %v exceeds %v cells", capacity, uint64(MaxCapacity)))
	}
	pageSize := uint(DefaultPageSize)
	if capacity < pageSize {
		pageSize = capacity
	}
	h := &Heap{capacity: capacity}
	for i := range h.pools {
		h.pools[i].PageSize = pageSize
		h.pools[i].Limit = capacity
	}
	return h
}

// Capacity returns the number of cells in each pool.
func (h *Heap) Capacity() uint { return h.capacity }

// Used returns the working pool's live bound.
func (h *Heap) Used() uint { return uint(h.used) }

// Collections returns how many collections have completed.
func (h *Heap) Collections() int { return h.collections }

// AllocCells reserves n contiguous cells at the end of the working pool.
// The reserved cells read as (Nil, Nil).
func (h *Heap) AllocCells(n uint) (object.Addr, error) {
	if uint(h.used)+n > h.capacity {
		return 0, ErrOutOfMemory
	}
	addr := h.used
	h.used += object.Addr(n)
	for i := uint(0); i < n; i++ {
		h.store(addr+object.Addr(i), object.Cell{})
	}
	return addr, nil
}

// AllocPair reserves a single cell.
func (h *Heap) AllocPair() (object.Addr, error) { return h.AllocCells(1) }

// AllocBytes reserves a byte vector header followed by room for count bytes,
// recording count in the header.
func (h *Heap) AllocBytes(count int) (object.Addr, error) {
	addr, err := h.AllocCells(StringCells(count))
	if err == nil {
		h.store(addr, object.Cell{First: object.Int(int64(count))})
	}
	return addr, err
}

// AllocVector reserves an object vector header followed by count Nil slots.
func (h *Heap) AllocVector(count int) (object.Addr, error) {
	addr, err := h.AllocCells(VectorCells(count))
	if err == nil {
		h.store(addr, object.Cell{First: object.Int(int64(count))})
	}
	return addr, err
}

// StringCells returns how many cells a byte vector of count bytes occupies:
// one header slot plus count bytes packed eight to a slot, two slots a cell.
func StringCells(count int) uint { return slotCells(1 + (count+7)/8) }

// VectorCells returns how many cells an object vector of count elements
// occupies: one header slot plus a slot per element.
func VectorCells(count int) uint { return slotCells(1 + count) }

func slotCells(slots int) uint { return uint(slots+1) / 2 }

// Load dereferences addr in the working pool.
func (h *Heap) Load(addr object.Addr) object.Cell {
	if addr >= h.used {
		panic(BoundError{addr, h.used})
	}
	cell, err := h.pools[h.working].Load(addr)
	if err != nil {
		panic(err)
	}
	return cell
}

// Store overwrites the cell at addr in the working pool.
func (h *Heap) Store(addr object.Addr, cell object.Cell) {
	if addr >= h.used {
		panic(BoundError{addr, h.used})
	}
	h.store(addr, cell)
}

func (h *Heap) store(addr object.Addr, cell object.Cell) {
	if err := h.pools[h.working].Stor(addr, cell); err != nil {
		panic(err)
	}
}

// Slot returns slot i of the multi-cell object at base; slot 0 is the header
// count.
func (h *Heap) Slot(base object.Addr, i int) object.Ref {
	return slotOf(h.Load(base+object.Addr(i/2)), i)
}

// SetSlot overwrites slot i of the multi-cell object at base.
func (h *Heap) SetSlot(base object.Addr, i int, ref object.Ref) {
	addr := base + object.Addr(i/2)
	h.Store(addr, withSlot(h.Load(addr), i, ref))
}

// StoreBytes packs data into the payload of the byte vector at base.
func (h *Heap) StoreBytes(base object.Addr, data []byte) {
	var word [8]byte
	for j := 0; len(data) > 0; j++ {
		word = [8]byte{}
		n := copy(word[:], data)
		data = data[n:]
		h.SetSlot(base, 1+j, object.Int(int64(binary.LittleEndian.Uint64(word[:]))))
	}
}

// LoadBytes unpacks the payload of the byte vector at base.
func (h *Heap) LoadBytes(base object.Addr) []byte {
	count := int(h.Slot(base, 0).Int())
	data := make([]byte, 0, (count+7)/8*8)
	var word [8]byte
	for j := 0; len(data) < count; j++ {
		binary.LittleEndian.PutUint64(word[:], uint64(h.Slot(base, 1+j).Int()))
		data = append(data, word[:]...)
	}
	return data[:count]
}

// ByteAt returns byte i of the byte vector at base.
func (h *Heap) ByteAt(base object.Addr, i int) byte {
	word := uint64(h.Slot(base, 1+i/8).Int())
	return byte(word >> (8 * uint(i%8)))
}

// Each calls fn with every live cell in the working pool, in address order.
func (h *Heap) Each(fn func(addr object.Addr, cell object.Cell)) {
	for addr := object.Addr(0); addr < h.used; addr++ {
		fn(addr, h.Load(addr))
	}
}

func slotOf(cell object.Cell, i int) object.Ref {
	if i%2 == 0 {
		return cell.First
	}
	return cell.Second
}

func withSlot(cell object.Cell, i int, ref object.Ref) object.Cell {
	if i%2 == 0 {
		cell.First = ref
	} else {
		cell.Second = ref
	}
	return cell
}
