package lispvm

import (
	"fmt"
	"math"
	"math/big"

	"github.com/nukata/goarith"

	"github.com/jcorbin/lispvm/internal/object"
)

// Fixnum arithmetic runs natively until it would overflow int64; then, and
// whenever a bignum or real is involved, it is carried out by goarith and the
// result is stored back as the narrowest representation that holds it.

// number is a decoded numeric operand; it lives on the Go stack, so
// arithmetic only allocates when the final result is stored.
type number struct {
	kind object.Tag // Fixnum, Bignum, or Real
	fix  int64
	big  *big.Int
	real float64
}

func fixnum(n int64) number { return number{kind: object.Fixnum, fix: n} }

func (m *Machine) decodeNumber(op string, ref object.Ref) number {
	switch ref.Tag() {
	case object.Fixnum:
		return fixnum(ref.Int())
	case object.Bignum:
		return number{kind: object.Bignum, big: m.bignum(ref)}
	case object.Real:
		return number{kind: object.Real, real: m.real(ref)}
	}
	m.raise(TypeError{Op: op, Want: "number", Have: ref.Tag()})
	return number{}
}

func (m *Machine) encodeNumber(n number) object.Ref {
	switch n.kind {
	case object.Real:
		return m.makeReal(n.real)
	case object.Bignum:
		return m.makeInteger(n.big)
	default:
		return object.Int(n.fix)
	}
}

func (n number) integer() *big.Int {
	if n.kind == object.Bignum {
		return n.big
	}
	return big.NewInt(n.fix)
}

func (n number) float() float64 {
	switch n.kind {
	case object.Real:
		return n.real
	case object.Bignum:
		f, _ := new(big.Float).SetInt(n.big).Float64()
		return f
	default:
		return float64(n.fix)
	}
}

func (n number) arith() goarith.Number {
	if n.kind == object.Real {
		return goarith.AsNumber(n.real)
	}
	return goarith.AsNumber(n.integer())
}

// fromArith narrows a goarith result; isReal says whether any operand was a
// real, which makes the result one too.
func fromArith(op string, r goarith.Number, isReal bool) (number, error) {
	var n number
	switch v := r.(type) {
	case goarith.Int32:
		n = fixnum(int64(v))
	case goarith.Int64:
		n = fixnum(int64(v))
	case *goarith.BigInt:
		z := new(big.Int).Set((*big.Int)(v))
		if z.IsInt64() {
			n = fixnum(z.Int64())
		} else {
			n = number{kind: object.Bignum, big: z}
		}
	case goarith.Float64:
		if !isReal {
			return number{}, ArithmeticError{Op: op, Reason: fmt.Sprintf("unrepresentable result %v", v)}
		}
		return number{kind: object.Real, real: float64(v)}, nil
	default:
		return number{}, ArithmeticError{Op: op, Reason: fmt.Sprintf("unrepresentable result %T", r)}
	}
	if isReal {
		return number{kind: object.Real, real: n.float()}, nil
	}
	return n, nil
}

type arithOp struct {
	name  string
	fast  func(a, b int64) (int64, bool)
	slow  func(a, b goarith.Number) goarith.Number
	ident int64
}

var (
	opAdd = arithOp{
		name: "+",
		fast: func(a, b int64) (int64, bool) {
			s := a + b
			return s, (a^s)&(b^s) >= 0
		},
		slow: func(a, b goarith.Number) goarith.Number { return a.Add(b) },
	}
	opSub = arithOp{
		name: "-",
		fast: func(a, b int64) (int64, bool) {
			d := a - b
			return d, (a^b)&(a^d) >= 0
		},
		slow: func(a, b goarith.Number) goarith.Number { return a.Sub(b) },
	}
	opMul = arithOp{
		name: "*",
		fast: func(a, b int64) (int64, bool) {
			if a == 0 || b == 0 {
				return 0, true
			}
			p := a * b
			if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
				return 0, false
			}
			return p, true
		},
		slow:  func(a, b goarith.Number) goarith.Number { return a.Mul(b) },
		ident: 1,
	}
)

func (op arithOp) apply(a, b number) (number, error) {
	if a.kind == object.Fixnum && b.kind == object.Fixnum {
		if r, ok := op.fast(a.fix, b.fix); ok {
			return fixnum(r), nil
		}
	}
	isReal := a.kind == object.Real || b.kind == object.Real
	return fromArith(op.name, op.slow(a.arith(), b.arith()), isReal)
}

// fold combines every argument left to right, starting from the operation's
// identity.
func (m *Machine) fold(op arithOp, argc int) (number, error) {
	acc := fixnum(op.ident)
	for i := 0; i < argc; i++ {
		var err error
		if acc, err = op.apply(acc, m.decodeNumber(op.name, m.Arg(i))); err != nil {
			return acc, err
		}
	}
	return acc, nil
}

func primAdd(m *Machine, argc int) error {
	n, err := m.fold(opAdd, argc)
	if err == nil {
		m.SetValue(m.encodeNumber(n))
	}
	return err
}

func primMul(m *Machine, argc int) error {
	n, err := m.fold(opMul, argc)
	if err == nil {
		m.SetValue(m.encodeNumber(n))
	}
	return err
}

// primSub negates a single argument, and otherwise subtracts the rest from
// the first.
func primSub(m *Machine, argc int) error {
	if argc == 1 {
		n, err := opSub.apply(fixnum(0), m.decodeNumber("-", m.Arg(0)))
		if err == nil {
			m.SetValue(m.encodeNumber(n))
		}
		return err
	}
	acc := m.decodeNumber("-", m.Arg(0))
	for i := 1; i < argc; i++ {
		var err error
		if acc, err = opSub.apply(acc, m.decodeNumber("-", m.Arg(i))); err != nil {
			return err
		}
	}
	m.SetValue(m.encodeNumber(acc))
	return nil
}

// primDiv truncates integer quotients; a single argument is inverted.
func primDiv(m *Machine, argc int) error {
	acc := m.decodeNumber("/", m.Arg(0))
	start := 1
	if argc == 1 {
		acc, start = fixnum(1), 0
	}
	for i := start; i < argc; i++ {
		d := m.decodeNumber("/", m.Arg(i))
		q, err := divide(acc, d)
		if err != nil {
			return err
		}
		acc = q
	}
	m.SetValue(m.encodeNumber(acc))
	return nil
}

func divide(a, b number) (number, error) {
	if a.kind == object.Real || b.kind == object.Real {
		return number{kind: object.Real, real: a.float() / b.float()}, nil
	}
	if b.kind == object.Fixnum && b.fix == 0 {
		return number{}, ArithmeticError{Op: "/", Reason: "division by zero"}
	}
	if a.kind == object.Fixnum && b.kind == object.Fixnum && !(a.fix == math.MinInt64 && b.fix == -1) {
		return fixnum(a.fix / b.fix), nil
	}
	q := new(big.Int).Quo(a.integer(), b.integer())
	if q.IsInt64() {
		return fixnum(q.Int64()), nil
	}
	return number{kind: object.Bignum, big: q}, nil
}

func (m *Machine) compareChain(op string, argc int, ok func(cmp int) bool) error {
	for i := 1; i < argc; i++ {
		a := m.decodeNumber(op, m.Arg(i-1))
		b := m.decodeNumber(op, m.Arg(i))
		if !ok(a.arith().Cmp(b.arith())) {
			m.SetValue(object.False)
			return nil
		}
	}
	if argc == 1 {
		m.decodeNumber(op, m.Arg(0))
	}
	m.SetValue(object.True)
	return nil
}

func primNumEq(m *Machine, argc int) error {
	return m.compareChain("=", argc, func(cmp int) bool { return cmp == 0 })
}

func primLess(m *Machine, argc int) error {
	return m.compareChain("<", argc, func(cmp int) bool { return cmp < 0 })
}

func primGreater(m *Machine, argc int) error {
	return m.compareChain(">", argc, func(cmp int) bool { return cmp > 0 })
}
