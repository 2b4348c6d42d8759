// Package obarray implements the process-wide symbol name table.
package obarray

import "fmt"

// Obarray interns symbol names. Ids are positions in interning order and are
// stable for the table's lifetime; the table only ever grows.
type Obarray struct {
	names []string
	ids   map[string]int
}

// IndexError indicates a symbol id with no interned name.
type IndexError struct {
	ID  int
	Len int
}

func (err IndexError) Error() string {
	return fmt.Sprintf("symbol id %v out of range [0, %v)", err.ID, err.Len)
}

// Intern returns the id of name, appending it if it has not been seen.
func (ob *Obarray) Intern(name string) int {
	id, defined := ob.ids[name]
	if !defined {
		if ob.ids == nil {
			ob.ids = make(map[string]int)
		}
		id = len(ob.names)
		ob.names = append(ob.names, name)
		ob.ids[name] = id
	}
	return id
}

// Lookup returns the id of an already interned name.
func (ob *Obarray) Lookup(name string) (int, bool) {
	id, defined := ob.ids[name]
	return id, defined
}

// Resolve returns the name interned under id.
func (ob *Obarray) Resolve(id int) (string, error) {
	if id < 0 || id >= len(ob.names) {
		return "", IndexError{id, len(ob.names)}
	}
	return ob.names[id], nil
}

// Len returns the number of interned names.
func (ob *Obarray) Len() int { return len(ob.names) }
