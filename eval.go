package lispvm

import (
	"context"

	"github.com/jcorbin/lispvm/internal/object"
)

// The evaluator is a loop over a handful of states. Anything that must
// happen after a sub-evaluation is recorded by pushing the registers it needs
// followed by a label; returning a value pops the label and resumes there.
// Nothing but the loop itself runs on the Go stack, so evaluation depth is
// bounded by the machine stack alone, and tail positions push nothing.

type state uint8

const (
	evalDispatch state = iota
	evalArgs
	applyDispatch
	evalSequence
	returnValue
)

var stateNames = [...]string{
	evalDispatch:  "eval",
	evalArgs:      "args",
	applyDispatch: "apply",
	evalSequence:  "sequence",
	returnValue:   "return",
}

func (st state) String() string { return stateNames[st] }

type label int64

const (
	labelDone label = iota
	labelIfDecide
	labelSetAssign
	labelDefineAssign
	labelSeqNext
	labelAppOperator
	labelArgDone
)

var labelNames = [...]string{
	labelDone:         "done",
	labelIfDecide:     "if-decide",
	labelSetAssign:    "set-assign",
	labelDefineAssign: "define-assign",
	labelSeqNext:      "seq-next",
	labelAppOperator:  "app-operator",
	labelArgDone:      "arg-done",
}

func (l label) String() string { return labelNames[l] }

// run evaluates m.expr in m.env, leaving the result in m.val.
func (m *Machine) run(ctx context.Context) error {
	m.pushLabel(labelDone)
	for st := evalDispatch; ; {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.trace {
			m.traceStep(st)
		}
		switch st {
		case evalDispatch:
			st = m.evalDispatch()
		case evalArgs:
			st = m.evalArgs()
		case applyDispatch:
			st = m.applyDispatch()
		case evalSequence:
			st = m.evalSequence()
		case returnValue:
			l := m.popLabel()
			if l == labelDone {
				return nil
			}
			st = m.resume(l)
		}
	}
}

func (m *Machine) traceStep(st state) {
	switch st {
	case evalDispatch:
		m.logf(">", "%v %v -- s:%v", st, m.Sprint(m.expr), len(m.stack))
	case returnValue:
		m.logf("<", "%v %v to %v -- s:%v", st, m.Sprint(m.val), label(m.peek(0).Int()), len(m.stack))
	case applyDispatch:
		m.logf("@", "%v %v argc:%v -- s:%v", st, m.Sprint(m.peek(m.argc)), m.argc, len(m.stack))
	default:
		m.logf("-", "%v -- s:%v", st, len(m.stack))
	}
}

func (m *Machine) evalDispatch() state {
	switch m.expr.Tag() {
	case object.Symbol:
		binding, ok := m.lookup(m.expr, m.env)
		if !ok {
			m.raise(UnboundVariableError{m.symbolName(m.expr)})
		}
		m.val = m.heap.Load(binding.Addr()).Second
		return returnValue

	case object.Cons:
		switch head := m.car(m.expr); {
		case !head.Is(object.Symbol):
		case object.Eq(head, m.forms.quote):
			return m.evalQuote()
		case object.Eq(head, m.forms.lambda):
			return m.evalLambda()
		case object.Eq(head, m.forms.ifForm):
			return m.evalIf()
		case object.Eq(head, m.forms.set):
			return m.evalSet()
		case object.Eq(head, m.forms.define):
			return m.evalDefine()
		case object.Eq(head, m.forms.begin):
			return m.evalBegin()
		case object.Eq(head, m.forms.let):
			m.expandLet()
			return evalDispatch
		}
		return m.evalApplication()

	default:
		m.val = m.expr
		return returnValue
	}
}

func (m *Machine) resume(l label) state {
	switch l {
	case labelIfDecide:
		m.expr = m.pop()
		m.env = m.pop()
		if object.Eq(m.val, object.False) {
			if alt := m.cdr(m.cddr(m.expr)); alt.IsNull() {
				m.val = object.Null
				return returnValue
			}
			m.expr = m.car(m.cdr(m.cddr(m.expr)))
		} else {
			m.expr = m.car(m.cddr(m.expr))
		}
		return evalDispatch

	case labelSetAssign:
		m.unev = m.pop()
		m.env = m.pop()
		m.assign(m.unev, m.val, m.env)
		return returnValue

	case labelDefineAssign:
		m.unev = m.pop()
		m.env = m.pop()
		m.define(m.unev, m.val, m.env)
		return returnValue

	case labelSeqNext:
		m.unev = m.cdr(m.pop())
		m.env = m.pop()
		return evalSequence

	case labelAppOperator:
		m.unev = m.pop()
		m.env = m.pop()
		m.proc = m.val
		m.push(m.proc)
		m.argc = 0
		return evalArgs

	case labelArgDone:
		m.argc = m.popInt()
		m.unev = m.pop()
		m.env = m.pop()
		m.push(m.val)
		m.argc++
		m.unev = m.cdr(m.unev)
		return evalArgs
	}
	panic(labelError(l))
}

type labelError label

func (l labelError) Error() string { return "invalid control label " + label(l).String() }

// evalQuote handles (quote datum).
func (m *Machine) evalQuote() state {
	if m.formLen(m.expr) != 2 {
		m.malformed("quote", "wants exactly one datum")
	}
	m.val = m.car(m.cdr(m.expr))
	return returnValue
}

// evalLambda handles (lambda params body...).
func (m *Machine) evalLambda() state {
	if m.formLen(m.expr) < 3 {
		m.malformed("lambda", "wants parameters and a body")
	}
	m.checkParams("lambda", m.car(m.cdr(m.expr)))
	m.val = m.compound(m.car(m.cdr(m.expr)), m.cddr(m.expr), m.env)
	return returnValue
}

// evalIf handles (if test consequent [alternative]).
func (m *Machine) evalIf() state {
	if n := m.formLen(m.expr); n != 3 && n != 4 {
		m.malformed("if", "wants a test, a consequent, and an optional alternative")
	}
	m.push(m.env)
	m.push(m.expr)
	m.pushLabel(labelIfDecide)
	m.expr = m.car(m.cdr(m.expr))
	return evalDispatch
}

// evalSet handles (set! name value).
func (m *Machine) evalSet() state {
	if m.formLen(m.expr) != 3 || !m.car(m.cdr(m.expr)).Is(object.Symbol) {
		m.malformed("set!", "wants a variable name and a value")
	}
	m.push(m.env)
	m.push(m.car(m.cdr(m.expr)))
	m.pushLabel(labelSetAssign)
	m.expr = m.car(m.cddr(m.expr))
	return evalDispatch
}

// evalDefine handles (define name value) and (define (name . params) body...).
func (m *Machine) evalDefine() state {
	switch n := m.formLen(m.expr); {
	case n < 0:
		m.malformed("define", "improper form")
	case n < 2:
		m.malformed("define", "wants a target")
	}
	switch target := m.car(m.cdr(m.expr)); target.Tag() {
	case object.Symbol:
		if m.formLen(m.expr) != 3 {
			m.malformed("define", "wants exactly one value")
		}
		m.push(m.env)
		m.push(target)
		m.pushLabel(labelDefineAssign)
		m.expr = m.car(m.cddr(m.expr))
		return evalDispatch

	case object.Cons:
		if !m.car(target).Is(object.Symbol) {
			m.malformed("define", "procedure name must be a symbol")
		}
		if m.formLen(m.expr) < 3 {
			m.malformed("define", "procedure wants a body")
		}
		m.checkParams("define", m.cdr(target))
		m.val = m.compound(m.cdr(target), m.cddr(m.expr), m.env)
		m.define(m.car(m.car(m.cdr(m.expr))), m.val, m.env)
		return returnValue

	default:
		m.malformed("define", "target must be a symbol or a procedure header")
		return returnValue
	}
}

// evalBegin handles (begin body...).
func (m *Machine) evalBegin() state {
	if m.formLen(m.expr) < 1 {
		m.malformed("begin", "improper body")
	}
	m.unev = m.cdr(m.expr)
	return evalSequence
}

// evalSequence evaluates the expressions in m.unev, the last one in tail
// position.
func (m *Machine) evalSequence() state {
	if m.unev.IsNull() {
		m.val = object.Null
		return returnValue
	}
	m.expr = m.car(m.unev)
	if !m.cdr(m.unev).IsNull() {
		m.push(m.env)
		m.push(m.unev)
		m.pushLabel(labelSeqNext)
	}
	return evalDispatch
}

// evalApplication starts an application by evaluating its operator.
func (m *Machine) evalApplication() state {
	if m.formLen(m.expr) < 1 {
		m.malformed("application", "improper argument list")
	}
	m.push(m.env)
	m.push(m.cdr(m.expr))
	m.pushLabel(labelAppOperator)
	m.expr = m.car(m.expr)
	return evalDispatch
}

// evalArgs evaluates the operands in m.unev from left to right, leaving each
// value on the stack above the operator.
func (m *Machine) evalArgs() state {
	if m.unev.IsNull() {
		return applyDispatch
	}
	m.push(m.env)
	m.push(m.unev)
	m.pushInt(m.argc)
	m.pushLabel(labelArgDone)
	m.expr = m.car(m.unev)
	return evalDispatch
}

// applyDispatch applies the operator below the top m.argc stack entries to
// them, popping both.
func (m *Machine) applyDispatch() state {
	m.proc = m.peek(m.argc)
	switch m.proc.Tag() {
	case object.Primitive:
		m.callPrimitive(int(m.proc.ID()), m.argc)
		m.drop(m.argc + 1)
		return returnValue

	case object.Compound:
		m.env = m.extend(m.argc)
		m.unev = m.procBody(m.proc)
		return evalSequence

	default:
		m.raise(TypeError{Op: "apply", Want: "procedure", Have: m.proc.Tag()})
		return returnValue
	}
}

// expandLet rewrites (let ((name init)...) body...) into
// ((lambda (name...) body...) init...).
func (m *Machine) expandLet() {
	if m.formLen(m.expr) < 3 {
		m.malformed("let", "wants bindings and a body")
	}
	n := m.formLen(m.car(m.cdr(m.expr)))
	if n < 0 {
		m.malformed("let", "bindings must be a list")
	}
	m.save(object.Null) // inits
	m.save(object.Null) // names
	for i := n - 1; i >= 0; i-- {
		b := m.nth(m.car(m.cdr(m.expr)), i)
		if m.formLen(b) != 2 || !m.car(b).Is(object.Symbol) {
			m.malformed("let", "each binding wants a name and an initial value")
		}
		names := m.cons(m.car(b), m.peek(0))
		m.poke(0, names)
		b = m.nth(m.car(m.cdr(m.expr)), i)
		inits := m.cons(m.car(m.cdr(b)), m.peek(1))
		m.poke(1, inits)
	}
	lambda := m.cons(m.restore(), m.cddr(m.expr))
	lambda = m.cons(m.forms.lambda, lambda)
	m.expr = m.cons(lambda, m.restore())
}

func (m *Machine) malformed(form, reason string) {
	m.raise(MalformedFormError{Form: form, Reason: reason})
}

// formLen returns the length of a proper list, or -1.
func (m *Machine) formLen(ref object.Ref) int {
	n := 0
	for ; ref.Is(object.Cons); ref = m.heap.Load(ref.Addr()).Second {
		n++
	}
	if !ref.IsNull() {
		return -1
	}
	return n
}

func (m *Machine) nth(lst object.Ref, i int) object.Ref {
	for ; i > 0; i-- {
		lst = m.cdr(lst)
	}
	return m.car(lst)
}

// checkParams accepts a proper list of distinct symbols, optionally dotted
// with a rest symbol, or a lone rest symbol.
func (m *Machine) checkParams(form string, params object.Ref) {
	seen := make(map[int64]bool)
	for {
		var sym object.Ref
		switch params.Tag() {
		case object.Nil:
			return
		case object.Symbol:
			sym = params
		case object.Cons:
			sym = m.car(params)
		default:
			m.malformed(form, "parameters must be symbols")
		}
		if !sym.Is(object.Symbol) {
			m.malformed(form, "parameters must be symbols")
		}
		if seen[sym.ID()] {
			m.malformed(form, "duplicate parameter "+m.symbolName(sym))
		}
		seen[sym.ID()] = true
		if params.Is(object.Symbol) {
			return
		}
		params = m.cdr(params)
	}
}

// car and cdr are the evaluator's unchecked accessors; the forms they walk
// have already been shaped by formLen.
func (m *Machine) car(ref object.Ref) object.Ref  { return m.heap.Load(ref.Addr()).First }
func (m *Machine) cdr(ref object.Ref) object.Ref  { return m.heap.Load(ref.Addr()).Second }
func (m *Machine) cddr(ref object.Ref) object.Ref { return m.cdr(m.cdr(ref)) }
