package lispvm

import (
	"errors"
	"fmt"

	"github.com/jcorbin/lispvm/internal/object"
)

var (
	// ErrHeapExhausted is fatal: an allocation still did not fit after a full
	// collection. Every later call on the machine returns it.
	ErrHeapExhausted = errors.New("heap exhausted")

	// ErrStackOverflow means evaluation nested deeper than the stack limit.
	ErrStackOverflow = errors.New("evaluation stack overflow")
)

// UnboundVariableError is raised when a variable reference or set! target
// has no binding.
type UnboundVariableError struct{ Name string }

func (err UnboundVariableError) Error() string {
	return fmt.Sprintf("unbound variable: %v", err.Name)
}

// ArityError is raised when a procedure receives the wrong number of
// arguments.
type ArityError struct {
	Name     string
	Want     int
	Have     int
	Variadic bool
}

func (err ArityError) Error() string {
	name := err.Name
	if name == "" {
		name = "#<procedure>"
	}
	if err.Variadic {
		return fmt.Sprintf("%v: wants at least %v arguments, have %v", name, err.Want, err.Have)
	}
	return fmt.Sprintf("%v: wants %v arguments, have %v", name, err.Want, err.Have)
}

// TypeError is raised when an operation receives a value of the wrong kind.
type TypeError struct {
	Op   string
	Want string
	Have object.Tag
}

func (err TypeError) Error() string {
	return fmt.Sprintf("%v: expected %v, have %v", err.Op, err.Want, err.Have)
}

// MalformedFormError is raised for special forms that do not have the
// required shape.
type MalformedFormError struct {
	Form   string
	Reason string
}

func (err MalformedFormError) Error() string {
	return fmt.Sprintf("malformed %v: %v", err.Form, err.Reason)
}

// IndexError is raised for an out of range vector, string, or symbol index.
type IndexError struct {
	Op    string
	Index int64
	Len   int
}

func (err IndexError) Error() string {
	return fmt.Sprintf("%v: index %v out of range [0, %v)", err.Op, err.Index, err.Len)
}

// ArithmeticError is raised for undefined arithmetic, like division by zero.
type ArithmeticError struct {
	Op     string
	Reason string
}

func (err ArithmeticError) Error() string {
	return fmt.Sprintf("%v: %v", err.Op, err.Reason)
}
