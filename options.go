package lispvm

import (
	"io"
	"io/ioutil"

	"github.com/jcorbin/lispvm/internal/flushio"
	"github.com/jcorbin/lispvm/internal/mem"
)

// DefaultStackLimit is the default evaluation stack depth.
const DefaultStackLimit = 10000

// MaxPoolSize is the largest pool size that New accepts.
const MaxPoolSize = mem.MaxCapacity

// Option configures a Machine under New.
type Option interface{ apply(m *Machine) }

var defaults = []Option{
	WithPoolSize(mem.DefaultCapacity),
	WithStackLimit(DefaultStackLimit),
	WithOutput(ioutil.Discard),
	WithPrimitives(DefaultPrimitives()...),
}

func (m *Machine) apply(opts ...Option) {
	for _, opt := range defaults {
		opt.apply(m)
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(m)
		}
	}
}

// Options combines any number of options into one.
func Options(opts ...Option) Option {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, impl)
		}
	}
	if len(res) == 1 {
		return res[0]
	}
	return res
}

type options []Option

func (opts options) apply(m *Machine) {
	for _, opt := range opts {
		opt.apply(m)
	}
}

// WithPoolSize sets the number of cells in each heap pool; New panics if it
// exceeds MaxPoolSize.
func WithPoolSize(cells uint) Option { return poolSizeOption(cells) }

// WithStackLimit bounds the evaluation stack depth.
func WithStackLimit(limit int) Option { return stackLimitOption(limit) }

// WithLogf sets a printf-style function to receive machine logs, like
// collection statistics.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return logfnOption(logfn) }

// WithTrace additionally logs every evaluator step.
func WithTrace(trace bool) Option { return traceOption(trace) }

// WithOutput sets where display and newline write.
func WithOutput(w io.Writer) Option { return outputOption{w} }

// WithPrimitives appends procedures to the primitive table; each is bound
// under its name in the global environment.
func WithPrimitives(prims ...Primitive) Option { return primitivesOption(prims) }

type poolSizeOption uint
type stackLimitOption int
type logfnOption func(mess string, args ...interface{})
type traceOption bool
type outputOption struct{ io.Writer }
type primitivesOption []Primitive

func (size poolSizeOption) apply(m *Machine)    { m.poolSize = uint(size) }
func (lim stackLimitOption) apply(m *Machine)   { m.stackLimit = int(lim) }
func (logfn logfnOption) apply(m *Machine)      { m.logfn = logfn }
func (trace traceOption) apply(m *Machine)      { m.trace = bool(trace) }
func (prims primitivesOption) apply(m *Machine) { m.prims = append(m.prims, prims...) }

func (o outputOption) apply(m *Machine) {
	if m.out != nil {
		m.out.Flush()
	}
	m.out = flushio.NewWriteFlusher(o.Writer)
}
