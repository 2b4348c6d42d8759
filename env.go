package lispvm

import "github.com/jcorbin/lispvm/internal/object"

// An environment is a list of frames, innermost first; a frame is a list of
// (symbol . value) bindings.

// lookup returns the nearest binding of sym in env.
func (m *Machine) lookup(sym, env object.Ref) (object.Ref, bool) {
	for ; env.Is(object.Cons); env = m.heap.Load(env.Addr()).Second {
		if binding, ok := m.lookupFrame(sym, m.heap.Load(env.Addr()).First); ok {
			return binding, true
		}
	}
	return object.Null, false
}

func (m *Machine) lookupFrame(sym, frame object.Ref) (object.Ref, bool) {
	for ; frame.Is(object.Cons); frame = m.heap.Load(frame.Addr()).Second {
		binding := m.heap.Load(frame.Addr()).First
		if object.Eq(m.heap.Load(binding.Addr()).First, sym) {
			return binding, true
		}
	}
	return object.Null, false
}

// define binds sym to value in the innermost frame of env, replacing any
// binding already there.
func (m *Machine) define(sym, value, env object.Ref) {
	if binding, ok := m.lookupFrame(sym, m.heap.Load(env.Addr()).First); ok {
		m.setSecond(binding, value)
		return
	}
	m.save(env)
	binding := m.cons(sym, value)
	frame := m.cons(binding, m.heap.Load(m.peek(0).Addr()).First)
	m.setFirst(m.restore(), frame)
}

// assign updates the nearest binding of sym in env.
func (m *Machine) assign(sym, value, env object.Ref) {
	binding, ok := m.lookup(sym, env)
	if !ok {
		m.raise(UnboundVariableError{m.symbolName(sym)})
	}
	m.setSecond(binding, value)
}

// BindGlobal binds name to value in the global environment.
func (m *Machine) BindGlobal(name string, value object.Ref) {
	m.define(m.MakeSymbol(name), value, m.global)
}

// extend pops the pending application off the stack, the procedure and its
// argc arguments above it, returning a new environment that binds the
// procedure's parameters to those arguments within its captured environment.
// Arity is checked before anything is allocated.
func (m *Machine) extend(argc int) object.Ref {
	base := len(m.stack) - argc
	proc := m.stack[base-1]
	params, _ := m.procParts(proc)

	var syms []object.Ref
	rest := object.Null
	for params.Is(object.Cons) {
		cell := m.heap.Load(params.Addr())
		syms = append(syms, cell.First)
		params = cell.Second
	}
	if params.Is(object.Symbol) {
		rest = params
	}
	if argc < len(syms) || (rest.IsNull() && argc > len(syms)) {
		m.raise(ArityError{Want: len(syms), Have: argc, Variadic: !rest.IsNull()})
	}

	m.save(object.Null)
	frameAt := len(m.stack) - 1
	if !rest.IsNull() {
		m.save(object.Null)
		for i := argc - 1; i >= len(syms); i-- {
			lst := m.cons(m.stack[base+i], m.stack[frameAt+1])
			m.stack[frameAt+1] = lst
		}
		binding := m.cons(rest, m.restore())
		frame := m.cons(binding, m.stack[frameAt])
		m.stack[frameAt] = frame
	}
	for i := len(syms) - 1; i >= 0; i-- {
		binding := m.cons(syms[i], m.stack[base+i])
		frame := m.cons(binding, m.stack[frameAt])
		m.stack[frameAt] = frame
	}
	_, captured := m.procParts(m.stack[base-1])
	env := m.cons(m.stack[frameAt], captured)
	m.stack = m.stack[:base-1]
	return env
}

// procParts returns a compound procedure's parameter list and captured
// environment.
func (m *Machine) procParts(proc object.Ref) (params, env object.Ref) {
	cell := m.heap.Load(proc.Addr())
	return cell.First, m.heap.Load(cell.Second.Addr()).Second
}

func (m *Machine) procBody(proc object.Ref) object.Ref {
	cell := m.heap.Load(proc.Addr())
	return m.heap.Load(cell.Second.Addr()).First
}

func (m *Machine) setFirst(ref, value object.Ref) {
	cell := m.heap.Load(ref.Addr())
	cell.First = value
	m.heap.Store(ref.Addr(), cell)
}

func (m *Machine) setSecond(ref, value object.Ref) {
	cell := m.heap.Load(ref.Addr())
	cell.Second = value
	m.heap.Store(ref.Addr(), cell)
}
