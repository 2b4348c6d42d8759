package lispvm

import "time"

// @generated from lisp_test.go

//go:generate go run scripts/gen_expects.go -- lisp_test.go lisp_expects_test.go

func withLispOptions(opts ...Option) func(lispTestCase) lispTestCase {
	return func(lt lispTestCase) lispTestCase {
		return lt.withOptions(opts...)
	}
}

func withLispPoolSize(cells uint) func(lispTestCase) lispTestCase {
	return func(lt lispTestCase) lispTestCase {
		return lt.withPoolSize(cells)
	}
}

func withLispStackLimit(limit int) func(lispTestCase) lispTestCase {
	return func(lt lispTestCase) lispTestCase {
		return lt.withStackLimit(limit)
	}
}

func withLispTimeout(timeout time.Duration) func(lispTestCase) lispTestCase {
	return func(lt lispTestCase) lispTestCase {
		return lt.withTimeout(timeout)
	}
}

func expectLispValue(printed string) func(lispTestCase) lispTestCase {
	return func(lt lispTestCase) lispTestCase {
		return lt.expectValue(printed)
	}
}

func expectLispError(err error) func(lispTestCase) lispTestCase {
	return func(lt lispTestCase) lispTestCase {
		return lt.expectError(err)
	}
}

func expectLispOutput(output string) func(lispTestCase) lispTestCase {
	return func(lt lispTestCase) lispTestCase {
		return lt.expectOutput(output)
	}
}

func expectLispStackDepth(depth int) func(lispTestCase) lispTestCase {
	return func(lt lispTestCase) lispTestCase {
		return lt.expectStackDepth(depth)
	}
}

func expectLispFatal(err error) func(lispTestCase) lispTestCase {
	return func(lt lispTestCase) lispTestCase {
		return lt.expectFatal(err)
	}
}
