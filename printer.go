package lispvm

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jcorbin/lispvm/internal/object"
)

var charNames = map[rune]string{
	' ':  "space",
	'\n': "newline",
	'\t': "tab",
	0:    "nul",
}

// Sprint returns the written form of ref, as the reader would accept it.
func (m *Machine) Sprint(ref Ref) string {
	var sb strings.Builder
	m.format(&sb, ref, false)
	return sb.String()
}

// Fprint writes ref to w; display writes strings and characters raw, rather
// than in their readable form.
func (m *Machine) Fprint(w io.Writer, ref Ref, display bool) error {
	var sb strings.Builder
	m.format(&sb, ref, display)
	_, err := io.WriteString(w, sb.String())
	return err
}

func (m *Machine) format(sb *strings.Builder, ref Ref, display bool) {
	switch ref.Tag() {
	case object.Nil:
		sb.WriteString("()")

	case object.Boolean:
		if ref.Int() != 0 {
			sb.WriteString("#t")
		} else {
			sb.WriteString("#f")
		}

	case object.Fixnum:
		sb.WriteString(strconv.FormatInt(ref.Int(), 10))

	case object.Bignum:
		sb.WriteString(m.bignum(ref).String())

	case object.Real:
		sb.WriteString(formatReal(m.real(ref)))

	case object.Character:
		r := rune(ref.Int())
		if display {
			sb.WriteRune(r)
		} else if name, ok := charNames[r]; ok {
			sb.WriteString(`#\`)
			sb.WriteString(name)
		} else {
			sb.WriteString(`#\`)
			sb.WriteRune(r)
		}

	case object.Symbol:
		name, err := m.symbols.Resolve(int(ref.ID()))
		if err != nil {
			sb.WriteString("#<" + err.Error() + ">")
		} else {
			sb.WriteString(name)
		}

	case object.String:
		data := m.heap.LoadBytes(ref.Addr())
		if display {
			sb.Write(data)
		} else {
			sb.WriteString(strconv.Quote(string(data)))
		}

	case object.Cons:
		m.formatList(sb, ref, display)

	case object.Vector:
		sb.WriteString("#(")
		for i, n := 0, m.VectorLen(ref); i < n; i++ {
			if i > 0 {
				sb.WriteByte(' ')
			}
			m.format(sb, m.heap.Slot(ref.Addr(), 1+i), display)
		}
		sb.WriteByte(')')

	case object.Compound:
		sb.WriteString("#<procedure>")

	case object.Primitive:
		sb.WriteString("#<primitive ")
		if id := int(ref.ID()); id >= 0 && id < len(m.prims) {
			sb.WriteString(m.prims[id].Name)
		} else {
			sb.WriteString(strconv.Itoa(id))
		}
		sb.WriteByte('>')

	default:
		sb.WriteString("#<" + ref.String() + ">")
	}
}

// maxListPrint bounds how many elements of one list are printed, so that
// circular lists still print.
const maxListPrint = 1 << 16

func (m *Machine) formatList(sb *strings.Builder, ref Ref, display bool) {
	sb.WriteByte('(')
	for i := 0; ; i++ {
		if i == maxListPrint {
			sb.WriteString(" ...)")
			return
		}
		cell := m.heap.Load(ref.Addr())
		if i > 0 {
			sb.WriteByte(' ')
		}
		m.format(sb, cell.First, display)
		switch next := cell.Second; {
		case next.IsNull():
			sb.WriteByte(')')
			return
		case next.Is(object.Cons):
			ref = next
		default:
			sb.WriteString(" . ")
			m.format(sb, next, display)
			sb.WriteByte(')')
			return
		}
	}
}

func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
