package lispvm

import "github.com/jcorbin/lispvm/internal/object"

// push saves a register or control label, raising ErrStackOverflow past the
// stack limit.
func (m *Machine) push(ref object.Ref) {
	if m.stackLimit > 0 && len(m.stack) >= m.stackLimit {
		m.raise(ErrStackOverflow)
	}
	m.stack = append(m.stack, ref)
}

func (m *Machine) pop() (ref object.Ref) {
	i := len(m.stack) - 1
	ref, m.stack = m.stack[i], m.stack[:i]
	return ref
}

// save holds ref as a collection root regardless of the stack limit; it must
// be paired with restore.
func (m *Machine) save(ref object.Ref) { m.stack = append(m.stack, ref) }

func (m *Machine) restore() object.Ref { return m.pop() }

// peek returns the stack entry i places below the top.
func (m *Machine) peek(i int) object.Ref { return m.stack[len(m.stack)-1-i] }

// poke overwrites the stack entry i places below the top.
func (m *Machine) poke(i int, ref object.Ref) { m.stack[len(m.stack)-1-i] = ref }

func (m *Machine) drop(n int) { m.stack = m.stack[:len(m.stack)-n] }

func (m *Machine) pushLabel(l label) { m.push(object.Int(int64(l))) }

func (m *Machine) popLabel() label { return label(m.pop().Int()) }

func (m *Machine) pushInt(n int) { m.push(object.Int(int64(n))) }

func (m *Machine) popInt() int { return int(m.pop().Int()) }
