// Package lispvm implements a small Lisp on a tagged cell heap.
//
// Every Lisp value is a Ref: a tag plus an id. Immediates (the empty list,
// booleans, fixnums, characters, symbols, and primitive procedures) carry their
// value in the id; everything else names a cell address in the machine's heap.
//
// The heap is two equally sized pools of cells. Allocation bumps a cursor
// through the working pool; when the pool is full, a Cheney-style copying
// collection moves everything reachable from the machine's roots into the other
// pool and the pools swap roles. An allocation that still does not fit after one
// collection exhausts the heap, which permanently fails the machine.
//
// Pairs take one cell. A compound procedure takes two: its parameter list, then
// its body and captured environment. Strings and vectors are a header cell
// holding their length followed by packed slots. Bignums are a sign cell chained
// to 32-bit limbs, and reals keep their IEEE bits in a single cell.
//
// Evaluation is an explicit-control register machine: registers val, expr,
// env, unev, and proc, plus a bounded stack of saved registers and continuation
// labels. Nothing but the dispatch loop runs on the Go call stack. Procedure
// bodies are entered without pushing anything, so a loop written as a tail call
// runs in constant stack space, while deep non-tail recursion stops with
// ErrStackOverflow.
//
// The registers, the global environment, and the stack are the only collector
// roots. A Ref held in a Go variable is only good until the next allocation;
// hold it across one with Push and Pop.
//
// Special forms are quote, lambda, if, set!, define, begin, and let; only #f is
// false. Primitives are looked up in a table, extendable with WithPrimitives.
//
// Errors raised during evaluation abort it and leave the machine ready for the
// next one, with any bindings made so far intact. Once the heap is exhausted, or
// the machine panics internally, every call returns that same error.
package lispvm
