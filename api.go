package lispvm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jcorbin/lispvm/internal/object"
	"github.com/jcorbin/lispvm/internal/panicerr"
	"github.com/jcorbin/lispvm/internal/reader"
)

// Ref is a tagged reference to a Lisp value.
type Ref = object.Ref

// Tag identifies the kind of value a Ref denotes.
type Tag = object.Tag

// Immediate values.
var (
	Null  = object.Null
	True  = object.True
	False = object.False
)

// Int returns a fixnum.
func Int(n int64) Ref { return object.Int(n) }

// Char returns a character.
func Char(r rune) Ref { return object.Char(r) }

// Eq reports whether two references denote the same object.
func Eq(a, b Ref) bool { return object.Eq(a, b) }

// Evaluate evaluates expr in env, returning its value. The value is only
// valid until the machine next allocates.
//
// Errors abort the evaluation and leave the machine as it was before the
// call, apart from bindings already completed, so that it can evaluate again.
// The exception is ErrHeapExhausted, or any internal panic, after which the
// machine returns that same error from every call.
func (m *Machine) Evaluate(ctx context.Context, expr, env Ref) (Ref, error) {
	if m.fatal != nil {
		return Null, m.fatal
	}
	depth := len(m.stack)
	err := panicerr.Recover("lispvm", func() error {
		m.expr, m.env = expr, env
		return m.run(ctx)
	})
	m.flush()
	if err != nil {
		m.reset(depth)
		if m.fatal == nil && panicerr.IsPanic(err) {
			m.fatal = err
		}
		return Null, err
	}
	m.expr, m.unev, m.proc, m.env = Null, Null, Null, m.global
	return m.val, nil
}

func (m *Machine) reset(depth int) {
	if depth <= len(m.stack) {
		m.stack = m.stack[:depth]
	}
	m.val, m.expr, m.unev, m.proc, m.argc = Null, Null, Null, Null, 0
	m.env = m.global
}

// guard runs f under the same error boundary as Evaluate, for operations
// that may allocate outside an evaluation.
func (m *Machine) guard(name string, f func() error) error {
	if m.fatal != nil {
		return m.fatal
	}
	depth := len(m.stack)
	err := panicerr.Recover(name, f)
	if err != nil {
		m.reset(depth)
		if m.fatal == nil && panicerr.IsPanic(err) {
			m.fatal = err
		}
	}
	return err
}

// Err returns the fatal error that ended the machine, if any.
func (m *Machine) Err() error { return m.fatal }

// EvalString reads every form in src and evaluates each in the global
// environment, returning the last value.
func (m *Machine) EvalString(ctx context.Context, name, src string) (Ref, error) {
	defer m.withLogPrefix(name + ": ")()
	data, err := reader.ReadString(name, src)
	if err != nil {
		return Null, err
	}
	return m.EvalData(ctx, data...)
}

// EvalData builds and evaluates each datum in the global environment,
// returning the last value.
func (m *Machine) EvalData(ctx context.Context, data ...reader.Datum) (Ref, error) {
	val := Null
	for _, d := range data {
		expr, err := m.Build(d)
		if err != nil {
			return Null, err
		}
		if val, err = m.Evaluate(ctx, expr, m.global); err != nil {
			return Null, err
		}
	}
	return val, nil
}

// LogPrefix labels every line logged through WithLogf until restore is
// called; EvalString labels with its source name.
func (m *Machine) LogPrefix(prefix string) (restore func()) {
	return m.withLogPrefix(prefix)
}

// Global returns the global environment.
func (m *Machine) Global() Ref { return m.global }

// MakeSymbol interns name.
func (m *Machine) MakeSymbol(name string) Ref { return object.Sym(m.symbols.Intern(name)) }

// SymbolName returns the name of a symbol.
func (m *Machine) SymbolName(sym Ref) string {
	m.assertTag("symbol-name", sym, object.Symbol)
	return m.symbolName(sym)
}

func (m *Machine) symbolName(sym Ref) string {
	name, err := m.symbols.Resolve(int(sym.ID()))
	if err != nil {
		m.raise(IndexError{Op: "symbol", Index: sym.ID(), Len: m.symbols.Len()})
	}
	return name
}

// MakeCons allocates a pair.
func (m *Machine) MakeCons(car, cdr Ref) Ref { return m.cons(car, cdr) }

// MakeNumber returns a fixnum; it never allocates.
func (m *Machine) MakeNumber(n int64) Ref { return object.Int(n) }

// MakeInteger returns a fixnum if z fits one, else allocates a bignum.
func (m *Machine) MakeInteger(z *big.Int) Ref { return m.makeInteger(z) }

// MakeReal allocates a real.
func (m *Machine) MakeReal(f float64) Ref { return m.makeReal(f) }

// MakeString allocates a string holding a copy of data.
func (m *Machine) MakeString(data []byte) Ref { return m.makeString(data) }

// MakeVector allocates a vector of n nil elements.
func (m *Machine) MakeVector(n int) Ref { return m.makeVector(n) }

// Integer returns the value of a fixnum or bignum.
func (m *Machine) Integer(ref Ref) *big.Int {
	switch ref.Tag() {
	case object.Fixnum:
		return big.NewInt(ref.Int())
	case object.Bignum:
		return m.bignum(ref)
	}
	m.raise(TypeError{Op: "integer", Want: "integer", Have: ref.Tag()})
	return nil
}

// Float returns the value of a real.
func (m *Machine) Float(ref Ref) float64 {
	m.assertTag("real", ref, object.Real)
	return m.real(ref)
}

// Car returns the head of a pair.
func (m *Machine) Car(ref Ref) Ref {
	m.assertTag("car", ref, object.Cons)
	return m.car(ref)
}

// Cdr returns the tail of a pair.
func (m *Machine) Cdr(ref Ref) Ref {
	m.assertTag("cdr", ref, object.Cons)
	return m.cdr(ref)
}

// SetCar replaces the head of a pair.
func (m *Machine) SetCar(ref, value Ref) {
	m.assertTag("set-car!", ref, object.Cons)
	m.setFirst(ref, value)
}

// SetCdr replaces the tail of a pair.
func (m *Machine) SetCdr(ref, value Ref) {
	m.assertTag("set-cdr!", ref, object.Cons)
	m.setSecond(ref, value)
}

// VectorLen returns the number of elements in a vector.
func (m *Machine) VectorLen(ref Ref) int {
	m.assertTag("vector-length", ref, object.Vector)
	return int(m.heap.Slot(ref.Addr(), 0).Int())
}

// VectorRef returns element i of a vector.
func (m *Machine) VectorRef(ref Ref, i int) Ref {
	m.checkIndex("vector-ref", i, m.VectorLen(ref))
	return m.heap.Slot(ref.Addr(), 1+i)
}

// VectorSet replaces element i of a vector.
func (m *Machine) VectorSet(ref Ref, i int, value Ref) {
	m.checkIndex("vector-set!", i, m.VectorLen(ref))
	m.heap.SetSlot(ref.Addr(), 1+i, value)
}

// StringLen returns the number of bytes in a string.
func (m *Machine) StringLen(ref Ref) int {
	m.assertTag("string-length", ref, object.String)
	return int(m.heap.Slot(ref.Addr(), 0).Int())
}

// StringBytes returns a copy of a string's bytes.
func (m *Machine) StringBytes(ref Ref) []byte {
	m.assertTag("string", ref, object.String)
	return m.heap.LoadBytes(ref.Addr())
}

// StringRef returns byte i of a string as a character.
func (m *Machine) StringRef(ref Ref, i int) Ref {
	m.checkIndex("string-ref", i, m.StringLen(ref))
	return object.Char(rune(m.heap.ByteAt(ref.Addr(), i)))
}

func (m *Machine) assertTag(op string, ref Ref, tag object.Tag) {
	if !ref.Is(tag) {
		m.raise(TypeError{Op: op, Want: tag.String(), Have: ref.Tag()})
	}
}

func (m *Machine) checkIndex(op string, i, n int) {
	if i < 0 || i >= n {
		m.raise(IndexError{Op: op, Index: int64(i), Len: n})
	}
}

// Push holds ref on the stack, where it is a collection root; Pop returns it,
// updated for any collection since.
func (m *Machine) Push(ref Ref) error {
	if m.stackLimit > 0 && len(m.stack) >= m.stackLimit {
		return ErrStackOverflow
	}
	m.stack = append(m.stack, ref)
	return nil
}

// Pop removes and returns the top of the stack.
func (m *Machine) Pop() (Ref, error) {
	if len(m.stack) == 0 {
		return Null, errors.New("pop from empty stack")
	}
	return m.pop(), nil
}

// Collect runs a full collection.
func (m *Machine) Collect() {
	m.collect()
}

// Stats describes the machine's resource use.
type Stats struct {
	PoolSize    uint // cells per pool
	Used        uint // live cells in the working pool
	Collections int
	StackDepth  int
	Symbols     int
}

func (st Stats) String() string {
	return fmt.Sprintf("%v/%v cells, %v collections, stack %v, %v symbols",
		st.Used, st.PoolSize, st.Collections, st.StackDepth, st.Symbols)
}

// Stats returns current resource use.
func (m *Machine) Stats() Stats {
	return Stats{
		PoolSize:    m.heap.Capacity(),
		Used:        m.heap.Used(),
		Collections: m.heap.Collections(),
		StackDepth:  len(m.stack),
		Symbols:     m.symbols.Len(),
	}
}
