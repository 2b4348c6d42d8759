package lispvm

import (
	"fmt"
	"strings"

	"github.com/jcorbin/lispvm/internal/flushio"
	"github.com/jcorbin/lispvm/internal/mem"
	"github.com/jcorbin/lispvm/internal/obarray"
	"github.com/jcorbin/lispvm/internal/object"
	"github.com/jcorbin/lispvm/internal/panicerr"
)

// Machine is a Lisp runtime: a two-pool cell heap, a symbol table, a global
// environment, and an explicit-control evaluator.
//
// Everything the collector may relocate is reachable from the machine's
// registers, its global environment, or its stack. A Ref held anywhere else,
// such as a Go local, is only valid until the next allocation.
//
// A Machine is not safe for concurrent use.
type Machine struct {
	logging
	trace bool

	heap     *mem.Heap
	poolSize uint
	symbols  obarray.Obarray

	// registers
	val  object.Ref // value of the last evaluation
	expr object.Ref // expression under evaluation
	env  object.Ref // current environment
	unev object.Ref // unevaluated operands or body expressions
	proc object.Ref // operator value
	argc int        // arguments accumulated for the pending application

	global object.Ref

	stack      []object.Ref
	stackLimit int

	prims []Primitive
	out   flushio.WriteFlusher

	forms specialForms

	fatal error
}

type specialForms struct {
	quote, lambda, ifForm, set, define, begin, let object.Ref
}

// New creates a machine with the default primitives bound in its global
// environment.
func New(opts ...Option) *Machine {
	var m Machine
	m.apply(opts...)
	m.init()
	return &m
}

func (m *Machine) init() {
	m.heap = mem.NewHeap(m.poolSize)
	m.forms = specialForms{
		quote:  m.MakeSymbol("quote"),
		lambda: m.MakeSymbol("lambda"),
		ifForm: m.MakeSymbol("if"),
		set:    m.MakeSymbol("set!"),
		define: m.MakeSymbol("define"),
		begin:  m.MakeSymbol("begin"),
		let:    m.MakeSymbol("let"),
	}
	m.global = m.cons(object.Null, object.Null)
	m.env = m.global
	m.BindGlobal("nil", object.Null)
	for i, prim := range m.prims {
		m.BindGlobal(prim.Name, object.Prim(i))
	}
}

// raise aborts the current evaluation with err; see Evaluate.
func (m *Machine) raise(err error) {
	if m.logfn != nil {
		m.logf("!", "raise %v", err)
	}
	panicerr.Raise(err)
}

// fail marks the machine permanently failed before raising err.
func (m *Machine) fail(err error) {
	m.fatal = err
	m.flush()
	m.logf("#", "fatal: %v", err)
	panicerr.Raise(err)
}

func (m *Machine) flush() {
	// ignore any panics while trying to flush output
	defer func() { recover() }()
	if m.out != nil {
		m.out.Flush()
	}
}

type logging struct {
	logfn func(mess string, args ...interface{})

	prefix    string
	markWidth int
}

// withLogPrefix sets the prefix carried by every log line, returning a
// function that restores the previous one.
func (log *logging) withLogPrefix(prefix string) (restore func()) {
	prior := log.prefix
	log.prefix = prefix
	return func() { log.prefix = prior }
}

func (log *logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		for _, r := range mark {
			mark = strings.Repeat(string(r), n) + mark
			break
		}
	} else if n < 0 {
		log.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v%v %v", log.prefix, mark, mess)
}
