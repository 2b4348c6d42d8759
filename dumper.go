package lispvm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jcorbin/lispvm/internal/object"
)

// Dump writes the machine's registers, stack, and working pool cells to w.
func (m *Machine) Dump(w io.Writer) {
	machineDumper{m: m, out: w}.dump()
}

type machineDumper struct {
	m   *Machine
	out io.Writer

	addrWidth int
}

func (dump machineDumper) dump() {
	fmt.Fprintf(dump.out, "# Machine Dump\n")
	if dump.m.fatal != nil {
		fmt.Fprintf(dump.out, "  fatal: %v\n", dump.m.fatal)
	}
	for _, reg := range []struct {
		name string
		ref  object.Ref
	}{
		{"val", dump.m.val},
		{"expr", dump.m.expr},
		{"env", dump.m.env},
		{"unev", dump.m.unev},
		{"proc", dump.m.proc},
		{"global", dump.m.global},
	} {
		fmt.Fprintf(dump.out, "  %v: %v\n", reg.name, dump.formatRef(reg.ref))
	}
	fmt.Fprintf(dump.out, "  argc: %v\n", dump.m.argc)
	fmt.Fprintf(dump.out, "  stats: %v\n", dump.m.Stats())

	dump.dumpStack()
	dump.dumpCells()
}

func (dump machineDumper) dumpStack() {
	fmt.Fprintf(dump.out, "# Stack depth:%v limit:%v\n", len(dump.m.stack), dump.m.stackLimit)
	for i := len(dump.m.stack) - 1; i >= 0; i-- {
		fmt.Fprintf(dump.out, "  [%v] %v\n", i, dump.formatRef(dump.m.stack[i]))
	}
}

func (dump machineDumper) dumpCells() {
	heap := dump.m.heap
	fmt.Fprintf(dump.out, "# Pool %v/%v cells\n", heap.Used(), heap.Capacity())
	if dump.addrWidth == 0 {
		dump.addrWidth = len(strconv.Itoa(int(heap.Used()))) + 1
	}
	heap.Each(func(addr object.Addr, cell object.Cell) {
		fmt.Fprintf(dump.out, "  @% *v %v . %v\n", dump.addrWidth, addr,
			dump.formatRef(cell.First), dump.formatRef(cell.Second))
	})
}

// formatRef shows a reference's tag and id, adding the name of symbols and
// primitives; it never follows heap addresses, so it is safe on any state.
func (dump machineDumper) formatRef(ref object.Ref) string {
	var sb strings.Builder
	switch ref.Tag() {
	case object.Nil:
		return "()"
	case object.Symbol:
		if name, err := dump.m.symbols.Resolve(int(ref.ID())); err == nil {
			return "'" + name
		}
	case object.Primitive:
		if id := int(ref.ID()); id >= 0 && id < len(dump.m.prims) {
			return "#<primitive " + dump.m.prims[id].Name + ">"
		}
	case object.Fixnum:
		return strconv.FormatInt(ref.Int(), 10)
	case object.Boolean:
		return dump.m.Sprint(ref)
	}
	if ref.Tag().IsHeap() {
		fmt.Fprintf(&sb, "%v@%v", ref.Tag(), ref.Addr())
	} else {
		sb.WriteString(ref.String())
	}
	return sb.String()
}
