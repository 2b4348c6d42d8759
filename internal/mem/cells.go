package mem

import (
	"fmt"

	"github.com/jcorbin/lispvm/internal/object"
)

// DefaultPageSize provides a default for Cells.PageSize.
const DefaultPageSize = 4096

// Cells implements a cell-oriented paged memory. Pages are allocated on first
// store, so a large Limit does not commit memory up front.
type Cells struct {
	// PageSize specifies the length of each page.
	PageSize uint

	// Limit specifies the capacity; any store at or past it is an error.
	Limit uint

	pages [][]object.Cell
}

// LimitError indicates that a memory operation exceeded a Cells limit.
type LimitError struct {
	Addr object.Addr
	Op   string
}

func (lim LimitError) Error() string {
	return fmt.Sprintf("memory limit exceeded by %v @%v", lim.Op, lim.Addr)
}

// Load returns the cell at addr; never stored cells read as zero (Nil, Nil).
func (m *Cells) Load(addr object.Addr) (object.Cell, error) {
	if err := m.checkLimit(uint(addr)+1, "load"); err != nil {
		return object.Cell{}, err
	}
	if m.PageSize == 0 {
		return object.Cell{}, nil
	}
	pageID, i := uint(addr)/m.PageSize, uint(addr)%m.PageSize
	if pageID < uint(len(m.pages)) {
		if page := m.pages[pageID]; page != nil {
			return page[i], nil
		}
	}
	return object.Cell{}, nil
}

// Stor stores cells at addr, allocating pages as needed.
// No partial store is done if the limit would be exceeded.
func (m *Cells) Stor(addr object.Addr, cells ...object.Cell) error {
	if len(cells) == 0 {
		return nil
	}
	if err := m.checkLimit(uint(addr)+uint(len(cells)), "stor"); err != nil {
		return err
	}
	if m.PageSize == 0 {
		m.PageSize = DefaultPageSize
	}
	for at := uint(addr); len(cells) > 0; {
		pageID, i := at/m.PageSize, at%m.PageSize
		n := copy(m.page(pageID)[i:], cells)
		cells = cells[n:]
		at += uint(n)
	}
	return nil
}

// Pages returns how many pages have been allocated.
func (m *Cells) Pages() (n int) {
	for _, page := range m.pages {
		if page != nil {
			n++
		}
	}
	return n
}

func (m *Cells) page(pageID uint) []object.Cell {
	if need := int(pageID) + 1 - len(m.pages); need > 0 {
		m.pages = append(m.pages, make([][]object.Cell, need)...)
	}
	page := m.pages[pageID]
	if page == nil {
		page = make([]object.Cell, m.PageSize)
		m.pages[pageID] = page
	}
	return page
}

func (m *Cells) checkLimit(end uint, op string) error {
	if m.Limit != 0 && end > m.Limit {
		return LimitError{object.Addr(end - 1), op}
	}
	return nil
}
