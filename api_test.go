package lispvm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/lispvm/internal/object"
	"github.com/jcorbin/lispvm/internal/reader"
)

func TestEvalData(t *testing.T) {
	m := New()
	val, err := m.EvalData(context.Background(),
		reader.List(reader.Symbol("define"), reader.Symbol("xs"),
			reader.List(reader.Symbol("quote"), reader.List(int64(1), reader.String("two"), reader.Char('3')))),
		reader.List(reader.Symbol("length"), reader.Symbol("xs")),
	)
	require.NoError(t, err)
	assert.Equal(t, "3", m.Sprint(val))

	val, err = m.EvalData(context.Background(), reader.Symbol("xs"))
	require.NoError(t, err)
	assert.Equal(t, `(1 "two" #\3)`, m.Sprint(val))
	assert.Equal(t, "(1 two 3)", displayString(t, m, val))
}

func TestEvalStringSyntax(t *testing.T) {
	m := New()
	_, err := m.EvalString(context.Background(), "open", `(+ 1`)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "expected incomplete input, got %v", err)

	_, err = m.EvalString(context.Background(), "close", `)`)
	var syntaxErr reader.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr), "expected a syntax error, got %v", err)
	assert.False(t, errors.Is(err, io.ErrUnexpectedEOF), "stray close must not read as incomplete")
	assert.NoError(t, m.Err())
}

func TestEvaluateInEnvironment(t *testing.T) {
	m := New()
	expr, err := m.Build(reader.List(reader.Symbol("+"), reader.Symbol("x"), int64(1)))
	require.NoError(t, err)
	require.NoError(t, m.Push(expr))

	// a child of the global environment binding x to 41
	binding := m.MakeCons(m.MakeSymbol("x"), Int(41))
	frame := m.MakeCons(binding, Null)
	env := m.MakeCons(frame, m.Global())

	expr, err = m.Pop()
	require.NoError(t, err)
	val, err := m.Evaluate(context.Background(), expr, env)
	require.NoError(t, err)
	assert.Equal(t, Int(42), val)

	_, err = m.Evaluate(context.Background(), expr, m.Global())
	assert.Equal(t, UnboundVariableError{Name: "x"}, err)
}

func TestBindGlobal(t *testing.T) {
	m := New()
	m.BindGlobal("answer", Int(42))
	m.BindGlobal("greeting", m.MakeString([]byte("hello")))
	val, err := m.EvalString(context.Background(), "bound", `(list answer greeting)`)
	require.NoError(t, err)
	assert.Equal(t, `(42 "hello")`, m.Sprint(val))
}

func TestAccessors(t *testing.T) {
	m := New()

	require.NoError(t, m.Push(m.MakeVector(2)))
	half := m.MakeReal(0.5)
	vec, err := m.Pop()
	require.NoError(t, err)
	m.VectorSet(vec, 0, half)
	m.VectorSet(vec, 1, Char('z'))
	assert.Equal(t, 2, m.VectorLen(vec))
	assert.Equal(t, 0.5, m.Float(m.VectorRef(vec, 0)))
	assert.Equal(t, `#(0.5 #\z)`, m.Sprint(vec))

	str := m.MakeString([]byte("abc"))
	assert.Equal(t, 3, m.StringLen(str))
	assert.Equal(t, []byte("abc"), m.StringBytes(str))
	assert.Equal(t, Char('b'), m.StringRef(str, 1))

	sym := m.MakeSymbol("hello")
	assert.Equal(t, object.Symbol, sym.Tag())
	assert.Equal(t, "hello", m.SymbolName(sym))

	pair := m.MakeCons(Int(1), Int(2))
	m.SetCar(pair, True)
	m.SetCdr(pair, False)
	assert.Equal(t, True, m.Car(pair))
	assert.Equal(t, False, m.Cdr(pair))

	assert.Equal(t, "#\\space", m.Sprint(Char(' ')))
	assert.Equal(t, "-7", m.Sprint(m.MakeNumber(-7)))
}

func TestAccessorErrors(t *testing.T) {
	m := New()
	err := m.guard("accessors", func() error {
		m.Car(Int(1))
		return nil
	})
	assert.Equal(t, TypeError{Op: "car", Want: "pair", Have: object.Fixnum}, err)

	err = m.guard("accessors", func() error {
		m.VectorRef(m.MakeVector(1), 1)
		return nil
	})
	assert.Equal(t, IndexError{Op: "vector-ref", Index: 1, Len: 1}, err)
	assert.NoError(t, m.Err(), "type and index errors are not fatal")
}

func TestOutputFlushedOnError(t *testing.T) {
	var out bytes.Buffer
	m := New(WithOutput(&out))
	_, err := m.EvalString(context.Background(), "partial", `(display "before") (car 1)`)
	assert.Error(t, err)
	assert.Equal(t, "before", out.String())
}

func TestTrace(t *testing.T) {
	var logs []string
	m := New(
		WithTrace(true),
		WithLogf(func(mess string, args ...interface{}) {
			logs = append(logs, fmt.Sprintf(mess, args...))
		}),
	)
	val, err := m.EvalString(context.Background(), "traced", `(+ 1 2)`)
	require.NoError(t, err)
	assert.Equal(t, Int(3), val)

	trace := strings.Join(logs, "\n")
	assert.Contains(t, trace, "eval (+ 1 2)")
	assert.Contains(t, trace, "apply #<primitive +> argc:2")
	assert.Contains(t, trace, "return 3 to done")
	for _, line := range logs {
		assert.True(t, strings.HasPrefix(line, "traced: "), "expected source name prefix on %q", line)
	}

	logs = logs[:0]
	restore := m.LogPrefix("direct: ")
	_, err = m.Evaluate(context.Background(), Int(7), m.Global())
	require.NoError(t, err)
	restore()
	require.NotEmpty(t, logs)
	for _, line := range logs {
		assert.True(t, strings.HasPrefix(line, "direct: "), "expected explicit prefix on %q", line)
	}

	logs = logs[:0]
	_, err = m.Evaluate(context.Background(), Int(7), m.Global())
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	for _, line := range logs {
		assert.False(t, strings.Contains(line, ": "), "expected prefix restored on %q", line)
	}

	logs = logs[:0]
	_, err = m.EvalString(context.Background(), "raised", `(car 1)`)
	require.Error(t, err)
	assert.Contains(t, strings.Join(logs, "\n"), "raise car: ")
}

func TestDump(t *testing.T) {
	m := New(WithPoolSize(256))
	_, err := m.EvalString(context.Background(), "dumped", `(define greeting "hi")`)
	require.NoError(t, err)
	require.NoError(t, m.Push(m.MakeSymbol("marker")))

	var out strings.Builder
	m.Dump(&out)
	dump := out.String()
	assert.Contains(t, dump, "# Machine Dump\n")
	assert.Contains(t, dump, "  env: pair@0\n")
	assert.Contains(t, dump, "# Stack depth:1 limit:10000\n")
	assert.Contains(t, dump, "  [0] 'marker\n")
	assert.Contains(t, dump, "'greeting . string@")
	assert.Contains(t, dump, fmt.Sprintf("# Pool %v/256 cells\n", m.Stats().Used))
}

func displayString(t *testing.T, m *Machine, ref Ref) string {
	var sb strings.Builder
	require.NoError(t, m.Fprint(&sb, ref, true))
	return sb.String()
}
