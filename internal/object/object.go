// Package object defines the tagged reference and heap cell representation
// shared by the allocator, the collector, and the evaluator.
package object

import "fmt"

// Tag identifies the kind of value a Ref denotes.
type Tag uint8

// Tags form a closed enumeration; BrokenHeart never escapes a collection.
const (
	Nil Tag = iota
	Boolean
	Fixnum
	Character
	Symbol
	Cons
	Compound
	Primitive
	Bignum
	Real
	String
	Vector
	BrokenHeart
)

var tagNames = [...]string{
	Nil:         "nil",
	Boolean:     "boolean",
	Fixnum:      "fixnum",
	Character:   "character",
	Symbol:      "symbol",
	Cons:        "pair",
	Compound:    "procedure",
	Primitive:   "primitive",
	Bignum:      "bignum",
	Real:        "real",
	String:      "string",
	Vector:      "vector",
	BrokenHeart: "broken-heart",
}

func (tag Tag) String() string {
	if int(tag) < len(tagNames) {
		return tagNames[tag]
	}
	return fmt.Sprintf("Tag(%d)", uint8(tag))
}

// IsConsLike returns true for tags whose referent is a chain of cells with a
// traced First field: pairs and compound procedures.
func (tag Tag) IsConsLike() bool { return tag == Cons || tag == Compound }

// IsLinear returns true for tags whose referent is a chain of cells holding
// only atomic payload.
func (tag Tag) IsLinear() bool { return tag == Bignum || tag == Real }

// IsHeap returns true if a Ref with this tag holds a pool address.
func (tag Tag) IsHeap() bool {
	switch tag {
	case Cons, Compound, Bignum, Real, String, Vector:
		return true
	}
	return false
}

// Addr is an index into the working cell pool.
type Addr uint32

// Ref is a tagged reference: immediates carry their value in id, heap values
// carry a pool address, symbols an obarray id, primitives a table index.
// Copying a Ref never copies its referent.
type Ref struct {
	tag Tag
	id  int64
}

// Well known immediates.
var (
	Null  = Ref{Nil, 0}
	False = Ref{Boolean, 0}
	True  = Ref{Boolean, 1}
)

// Make constructs a reference from a tag and raw id.
func Make(tag Tag, id int64) Ref { return Ref{tag, id} }

// At constructs a heap reference to addr.
func At(tag Tag, addr Addr) Ref { return Ref{tag, int64(addr)} }

// Int constructs a fixnum.
func Int(v int64) Ref { return Ref{Fixnum, v} }

// Bool constructs a boolean.
func Bool(b bool) Ref {
	if b {
		return True
	}
	return False
}

// Char constructs a character.
func Char(r rune) Ref { return Ref{Character, int64(r)} }

// Sym constructs a symbol reference to an obarray id.
func Sym(id int) Ref { return Ref{Symbol, int64(id)} }

// Prim constructs a primitive procedure reference to a table index.
func Prim(index int) Ref { return Ref{Primitive, int64(index)} }

// Tag returns the reference's tag.
func (ref Ref) Tag() Tag { return ref.tag }

// ID returns the raw id.
func (ref Ref) ID() int64 { return ref.id }

// Int returns the raw id as a signed immediate.
func (ref Ref) Int() int64 { return ref.id }

// Addr returns the id as a pool address.
func (ref Ref) Addr() Addr { return Addr(ref.id) }

// WithAddr returns a reference with the same tag pointing at addr.
func (ref Ref) WithAddr(addr Addr) Ref { return Ref{ref.tag, int64(addr)} }

// IsNull returns true only for the empty list.
func (ref Ref) IsNull() bool { return ref.tag == Nil }

// Is returns true if ref carries the given tag.
func (ref Ref) Is(tag Tag) bool { return ref.tag == tag }

func (ref Ref) String() string {
	return fmt.Sprintf("%v:%v", ref.tag, ref.id)
}

// Eq compares two references for identity: immediates by value, heap
// values by address.
func Eq(a, b Ref) bool { return a.tag == b.tag && a.id == b.id }

// Cell is the heap's unit of storage.
type Cell struct {
	First  Ref
	Second Ref
}

// Forward returns the marker cell left at a relocated object's old address.
func Forward(to Addr) Cell {
	return Cell{Ref{BrokenHeart, 0}, Ref{Fixnum, int64(to)}}
}

// Forwarded returns the new address of a relocated object, if the cell is a
// broken heart marker.
func (c Cell) Forwarded() (Addr, bool) {
	if c.First.tag != BrokenHeart {
		return 0, false
	}
	return Addr(c.Second.id), true
}
