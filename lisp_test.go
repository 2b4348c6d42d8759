package lispvm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/lispvm/internal/logio"
)

type lispTestCases []lispTestCase

func (lts lispTestCases) run(t *testing.T) {
	{
		var exclusive []lispTestCase
		for _, lt := range lts {
			if lt.exclusive {
				exclusive = append(exclusive, lt)
			}
		}
		if len(exclusive) > 0 {
			lts = exclusive
		}
	}
	for _, lt := range lts {
		if !t.Run(lt.name, lt.run) {
			return
		}
	}
}

func lispTest(name string) (lt lispTestCase) {
	lt.name = name
	return lt
}

type lispTestCase struct {
	name    string
	opts    []interface{}
	steps   []lispTestStep
	expect  []func(t *testing.T, m *Machine)
	timeout time.Duration

	exclusive bool
}

type lispTestStep struct {
	src     string
	op      func(t *testing.T, m *Machine)
	want    string
	wantSet bool
	wantErr error
}

func (lt lispTestCase) apply(wraps ...func(lispTestCase) lispTestCase) lispTestCase {
	for _, wrap := range wraps {
		lt = wrap(lt)
	}
	return lt
}

func (lt lispTestCase) exclusiveTest() lispTestCase {
	lt.exclusive = true
	return lt
}

func (lt lispTestCase) withOptions(opts ...Option) lispTestCase {
	for _, opt := range opts {
		lt.opts = append(lt.opts, opt)
	}
	return lt
}

func (lt lispTestCase) withPoolSize(cells uint) lispTestCase {
	lt.opts = append(lt.opts, WithPoolSize(cells))
	return lt
}

func (lt lispTestCase) withStackLimit(limit int) lispTestCase {
	lt.opts = append(lt.opts, WithStackLimit(limit))
	return lt
}

func (lt lispTestCase) withTimeout(timeout time.Duration) lispTestCase {
	lt.timeout = timeout
	return lt
}

func (lt lispTestCase) eval(src string) lispTestCase {
	lt.steps = append(lt.steps, lispTestStep{src: src})
	return lt
}

func (lt lispTestCase) do(op func(t *testing.T, m *Machine)) lispTestCase {
	lt.steps = append(lt.steps, lispTestStep{op: op})
	return lt
}

func (lt lispTestCase) expectValue(printed string) lispTestCase {
	steps := append([]lispTestStep(nil), lt.steps...)
	if len(steps) == 0 {
		panic("lispTestCase: expectValue before any eval step")
	}
	steps[len(steps)-1].want = printed
	steps[len(steps)-1].wantSet = true
	lt.steps = steps
	return lt
}

func (lt lispTestCase) expectError(err error) lispTestCase {
	steps := append([]lispTestStep(nil), lt.steps...)
	if len(steps) == 0 {
		panic("lispTestCase: expectError before any eval step")
	}
	steps[len(steps)-1].wantErr = err
	lt.steps = steps
	return lt
}

func (lt lispTestCase) expectOutput(output string) lispTestCase {
	var out strings.Builder
	lt.opts = append(lt.opts, func(t *testing.T) Option {
		out.Reset()
		return WithOutput(&out)
	})
	lt.expect = append(lt.expect, func(t *testing.T, m *Machine) {
		assert.Equal(t, output, out.String(), "expected output")
	})
	return lt
}

func (lt lispTestCase) expectStackDepth(depth int) lispTestCase {
	lt.expect = append(lt.expect, func(t *testing.T, m *Machine) {
		assert.Equal(t, depth, m.Stats().StackDepth, "expected stack depth")
	})
	return lt
}

func (lt lispTestCase) expectCollections() lispTestCase {
	lt.expect = append(lt.expect, func(t *testing.T, m *Machine) {
		assert.NotZero(t, m.Stats().Collections, "expected at least one collection")
	})
	return lt
}

func (lt lispTestCase) expectFatal(err error) lispTestCase {
	lt.expect = append(lt.expect, func(t *testing.T, m *Machine) {
		assert.True(t, errors.Is(m.Err(), err), "expected fatal error: %v\ngot: %v", err, m.Err())
	})
	return lt
}

func (lt lispTestCase) check(fn func(t *testing.T, m *Machine)) lispTestCase {
	lt.expect = append(lt.expect, fn)
	return lt
}

func (lt lispTestCase) run(t *testing.T) {
	defer func(then time.Time) {
		label := "PASS"
		if t.Failed() {
			label = "FAIL"
		}
		t.Logf("%v\t%v\t%v", label, t.Name(), time.Now().Sub(then))
	}(time.Now())

	if testFails(func(t *testing.T) {
		lt.runMachine(context.Background(), t, lt.buildMachine(t))
	}) {
		lt.runMachine(context.Background(), t, lt.buildMachine(t, WithLogf(t.Logf)))
	}
}

func (lt lispTestCase) runMachine(ctx context.Context, t *testing.T, m *Machine) {
	const defaultTimeout = time.Second
	timeout := lt.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if t.Failed() {
			dumpToTest(t, m)
		}
	}()

	for i, step := range lt.steps {
		if step.op != nil {
			step.op(t, m)
			continue
		}
		val, err := m.EvalString(ctx, fmt.Sprintf("%v[%v]", t.Name(), i), step.src)
		if step.wantErr != nil {
			if !assert.True(t, errors.Is(err, step.wantErr),
				"evaluating %q\nexpected error: %v\ngot: %+v", step.src, step.wantErr, err) {
				return
			}
			continue
		}
		if !assert.NoError(t, err, "unexpected error evaluating %q", step.src) {
			return
		}
		if step.wantSet && !assert.Equal(t, step.want, m.Sprint(val), "expected value of %q", step.src) {
			return
		}
	}

	for _, expect := range lt.expect {
		expect(t, m)
	}
}

func (lt lispTestCase) buildMachine(t *testing.T, extra ...Option) *Machine {
	var opts []Option
	for _, o := range lt.opts {
		switch impl := o.(type) {
		case func(t *testing.T) Option:
			opts = append(opts, impl(t))
		case Option:
			opts = append(opts, impl)
		default:
			t.Logf("unsupported lispTestCase opt type %T", o)
			t.FailNow()
		}
	}
	opts = append(opts, extra...)
	return New(Options(opts...))
}

func dumpToTest(t *testing.T, m *Machine) {
	lw := &logio.Writer{Logf: t.Logf, Prefix: "dump: "}
	defer lw.Close()
	m.Dump(lw)
}

//// utilities

func testFails(fn func(t *testing.T)) bool {
	var fakeT testing.T
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(&fakeT)
	}()
	<-done
	return fakeT.Failed()
}

func lines(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}
