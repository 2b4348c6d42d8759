package lispvm

import (
	"fmt"
	"math/big"

	"github.com/jcorbin/lispvm/internal/object"
	"github.com/jcorbin/lispvm/internal/reader"
)

// Build allocates the heap form of a datum read by the reader.
func (m *Machine) Build(d reader.Datum) (ref Ref, err error) {
	err = m.guard("build", func() error {
		ref = m.build(d)
		return nil
	})
	return ref, err
}

// build keeps partial results on the stack, so only its return value is
// fresh.
func (m *Machine) build(d reader.Datum) Ref {
	switch v := d.(type) {
	case nil:
		return object.Null
	case bool:
		return object.Bool(v)
	case int64:
		return object.Int(v)
	case *big.Int:
		return m.makeInteger(v)
	case float64:
		return m.makeReal(v)
	case reader.Char:
		return object.Char(rune(v))
	case reader.String:
		return m.makeString([]byte(v))
	case reader.Symbol:
		return m.MakeSymbol(string(v))

	case *reader.Pair:
		n := 0
		var tail reader.Datum = v
		for p, ok := tail.(*reader.Pair); ok; p, ok = tail.(*reader.Pair) {
			m.save(m.build(p.Car))
			tail = p.Cdr
			n++
		}
		lst := m.build(tail)
		for ; n > 0; n-- {
			lst = m.cons(m.restore(), lst)
		}
		return lst

	case reader.Vector:
		for _, elem := range v {
			m.save(m.build(elem))
		}
		vec := m.makeVector(len(v))
		for i := len(v) - 1; i >= 0; i-- {
			m.heap.SetSlot(vec.Addr(), 1+i, m.restore())
		}
		return vec
	}
	panic(fmt.Sprintf("unsupported datum type %T", d))
}
