package lispvm

import (
	"fmt"

	"github.com/jcorbin/lispvm/internal/object"
)

// Primitive is a procedure implemented in Go. Func finds its argc arguments
// on top of the stack, reads them with Arg, and sets its result with
// SetValue; the machine pops the arguments once Func returns.
//
// MaxArgs < 0 means any number of arguments.
type Primitive struct {
	Name    string
	MinArgs int
	MaxArgs int
	Func    func(m *Machine, argc int) error
}

// Arg returns argument i of the primitive being called, counting from the
// left. Like any Ref, it is only valid until the next allocation; call Arg
// again afterwards.
func (m *Machine) Arg(i int) object.Ref {
	if i < 0 || i >= m.argc {
		m.raise(IndexError{Op: "arg", Index: int64(i), Len: m.argc})
	}
	return m.stack[len(m.stack)-m.argc+i]
}

// Argc returns the argument count of the primitive being called.
func (m *Machine) Argc() int { return m.argc }

// SetValue sets the result of the primitive being called.
func (m *Machine) SetValue(ref object.Ref) { m.val = ref }

func (m *Machine) callPrimitive(id, argc int) {
	if id < 0 || id >= len(m.prims) {
		m.raise(IndexError{Op: "primitive", Index: int64(id), Len: len(m.prims)})
	}
	prim := m.prims[id]
	if argc < prim.MinArgs || (prim.MaxArgs >= 0 && argc > prim.MaxArgs) {
		want := prim.MinArgs
		if argc > prim.MinArgs {
			want = prim.MaxArgs
		}
		m.raise(ArityError{
			Name:     prim.Name,
			Want:     want,
			Have:     argc,
			Variadic: prim.MaxArgs < 0,
		})
	}
	depth := len(m.stack)
	m.val = object.Null
	if err := prim.Func(m, argc); err != nil {
		m.raise(err)
	}
	if len(m.stack) != depth {
		m.fail(stackImbalanceError{prim.Name, depth, len(m.stack)})
	}
}

type stackImbalanceError struct {
	name      string
	want, got int
}

func (err stackImbalanceError) Error() string {
	return fmt.Sprintf("primitive %v left the stack at depth %v, want %v", err.name, err.got, err.want)
}

// DefaultPrimitives returns the standard primitive table.
func DefaultPrimitives() []Primitive {
	return []Primitive{
		{"car", 1, 1, primCar},
		{"cdr", 1, 1, primCdr},
		{"cons", 2, 2, primCons},
		{"+", 0, -1, primAdd},
		{"-", 1, -1, primSub},
		{"*", 0, -1, primMul},
		{"/", 1, -1, primDiv},
		{"eq?", 2, 2, primEq},
		{"null?", 1, 1, primNull},
		{"list", 0, -1, primList},
		{"gc", 0, 0, primGC},
		{"length", 1, 1, primLength},
		{"set-car!", 2, 2, primSetCar},
		{"set-cdr!", 2, 2, primSetCdr},
		{"vector-length", 1, 1, primVectorLength},
		{"string-char", 2, 2, primStringRef},
		{"vector", 0, -1, primVector},
		{"vector-ref", 2, 2, primVectorRef},

		{"=", 1, -1, primNumEq},
		{"<", 1, -1, primLess},
		{">", 1, -1, primGreater},
		{"not", 1, 1, primNot},
		{"pair?", 1, 1, primPair},
		{"symbol?", 1, 1, primSymbol},
		{"make-vector", 1, 2, primMakeVector},
		{"vector-set!", 3, 3, primVectorSet},
		{"string-length", 1, 1, primStringLength},
		{"string-ref", 2, 2, primStringRef},
		{"display", 1, 1, primDisplay},
		{"newline", 0, 0, primNewline},
	}
}

func primCar(m *Machine, argc int) error {
	m.SetValue(m.Car(m.Arg(0)))
	return nil
}

func primCdr(m *Machine, argc int) error {
	m.SetValue(m.Cdr(m.Arg(0)))
	return nil
}

func primCons(m *Machine, argc int) error {
	m.SetValue(m.MakeCons(m.Arg(0), m.Arg(1)))
	return nil
}

func primEq(m *Machine, argc int) error {
	m.SetValue(object.Bool(object.Eq(m.Arg(0), m.Arg(1))))
	return nil
}

func primNull(m *Machine, argc int) error {
	m.SetValue(object.Bool(m.Arg(0).IsNull()))
	return nil
}

func primNot(m *Machine, argc int) error {
	m.SetValue(object.Bool(object.Eq(m.Arg(0), object.False)))
	return nil
}

func primPair(m *Machine, argc int) error {
	m.SetValue(object.Bool(m.Arg(0).Is(object.Cons)))
	return nil
}

func primSymbol(m *Machine, argc int) error {
	m.SetValue(object.Bool(m.Arg(0).Is(object.Symbol)))
	return nil
}

func primList(m *Machine, argc int) error {
	lst := object.Null
	for i := argc - 1; i >= 0; i-- {
		lst = m.MakeCons(m.Arg(i), lst)
	}
	m.SetValue(lst)
	return nil
}

func primGC(m *Machine, argc int) error {
	m.Collect()
	m.SetValue(object.Null)
	return nil
}

func primLength(m *Machine, argc int) error {
	n := int64(0)
	for lst := m.Arg(0); !lst.IsNull(); lst = m.Cdr(lst) {
		if !lst.Is(object.Cons) {
			return TypeError{Op: "length", Want: "proper list", Have: lst.Tag()}
		}
		n++
	}
	m.SetValue(object.Int(n))
	return nil
}

func primSetCar(m *Machine, argc int) error {
	m.SetCar(m.Arg(0), m.Arg(1))
	m.SetValue(m.Arg(1))
	return nil
}

func primSetCdr(m *Machine, argc int) error {
	m.SetCdr(m.Arg(0), m.Arg(1))
	m.SetValue(m.Arg(1))
	return nil
}

func primVector(m *Machine, argc int) error {
	vec := m.MakeVector(argc)
	for i := 0; i < argc; i++ {
		m.VectorSet(vec, i, m.Arg(i))
	}
	m.SetValue(vec)
	return nil
}

func primMakeVector(m *Machine, argc int) error {
	n := int(m.fixnumArg("make-vector", 0))
	vec := m.MakeVector(n)
	if argc > 1 {
		for i := 0; i < n; i++ {
			m.VectorSet(vec, i, m.Arg(1))
		}
	}
	m.SetValue(vec)
	return nil
}

func primVectorLength(m *Machine, argc int) error {
	m.SetValue(object.Int(int64(m.VectorLen(m.Arg(0)))))
	return nil
}

func primVectorRef(m *Machine, argc int) error {
	m.SetValue(m.VectorRef(m.Arg(0), int(m.fixnumArg("vector-ref", 1))))
	return nil
}

func primVectorSet(m *Machine, argc int) error {
	m.VectorSet(m.Arg(0), int(m.fixnumArg("vector-set!", 1)), m.Arg(2))
	m.SetValue(m.Arg(2))
	return nil
}

func primStringLength(m *Machine, argc int) error {
	m.SetValue(object.Int(int64(m.StringLen(m.Arg(0)))))
	return nil
}

func primStringRef(m *Machine, argc int) error {
	m.SetValue(m.StringRef(m.Arg(0), int(m.fixnumArg("string-ref", 1))))
	return nil
}

func primDisplay(m *Machine, argc int) error {
	if err := m.Fprint(m.out, m.Arg(0), true); err != nil {
		return err
	}
	m.SetValue(m.Arg(0))
	return nil
}

func primNewline(m *Machine, argc int) error {
	_, err := m.out.Write([]byte{'\n'})
	return err
}

func (m *Machine) fixnumArg(op string, i int) int64 {
	arg := m.Arg(i)
	if !arg.Is(object.Fixnum) {
		m.raise(TypeError{Op: op, Want: "fixnum", Have: arg.Tag()})
	}
	return arg.Int()
}
