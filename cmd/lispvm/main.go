// Command lispvm evaluates Lisp programs from files, command line
// expressions, or an interactive prompt.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"

	"github.com/jcorbin/lispvm"
	"github.com/jcorbin/lispvm/internal/fileinput"
	"github.com/jcorbin/lispvm/internal/flushio"
	"github.com/jcorbin/lispvm/internal/logio"
)

const usage = `lispvm

Usage:
  lispvm [options] [--eval=EXPR]... [FILE...]
  lispvm -h | --help

Arguments:
  FILE  Program file to evaluate; - reads standard input.

Options:
  -e, --eval=EXPR        Evaluate EXPR and print its value.
  -i, --interactive      Prompt for expressions after any other input.
  --pool-size=CELLS      Cells in each heap pool [default: 1048576].
  --stack-limit=DEPTH    Evaluation stack depth limit [default: 10000].
  --timeout=DURATION     Time limit for each top level form.
  --transcript=FILE      Also copy program output into FILE.
  -v, --verbose          Log collections.
  --trace                Log every evaluator step.
  -h, --help             Display this help.

With no expressions or files, lispvm prompts for expressions when standard
input is a terminal, and evaluates standard input as a program otherwise.
`

type config struct {
	exprs       []string
	files       []string
	interactive bool
	poolSize    uint
	stackLimit  int
	timeout     time.Duration
	transcript  string
	verbose     bool
	trace       bool
}

func parseConfig(argv []string) (cfg config, err error) {
	parser := docopt.Parser{HelpHandler: docopt.PrintHelpAndExit}
	opts, err := parser.ParseArgs(usage, argv, "")
	if err != nil {
		return cfg, err
	}

	cfg.exprs, _ = opts["--eval"].([]string)
	cfg.files, _ = opts["FILE"].([]string)
	cfg.interactive, _ = opts.Bool("--interactive")
	cfg.verbose, _ = opts.Bool("--verbose")
	cfg.trace, _ = opts.Bool("--trace")
	cfg.transcript, _ = opts.String("--transcript")

	size, err := opts.Int("--pool-size")
	if err != nil || size <= 0 {
		return cfg, fmt.Errorf("invalid --pool-size: %v", opts["--pool-size"])
	}
	if uint64(size) > lispvm.MaxPoolSize {
		return cfg, fmt.Errorf("--pool-size %v exceeds the maximum of %v cells", size, uint64(lispvm.MaxPoolSize))
	}
	cfg.poolSize = uint(size)

	if cfg.stackLimit, err = opts.Int("--stack-limit"); err != nil || cfg.stackLimit <= 0 {
		return cfg, fmt.Errorf("invalid --stack-limit: %v", opts["--stack-limit"])
	}

	if s, _ := opts.String("--timeout"); s != "" {
		if cfg.timeout, err = time.ParseDuration(s); err != nil {
			return cfg, fmt.Errorf("invalid --timeout: %w", err)
		}
	}
	return cfg, nil
}

func main() {
	log := logio.New(os.Stderr)
	run(log)
	os.Exit(log.ExitCode())
}

func run(log *logio.Logger) {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		log.Errorf("%v", err)
		return
	}

	out := flushio.NewWriteFlusher(os.Stdout)
	if cfg.transcript != "" {
		f, err := os.Create(cfg.transcript)
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		defer func() { log.ErrorIf(f.Close()) }()
		tf := flushio.NewWriteFlusher(f)
		defer func() { log.ErrorIf(tf.Flush()) }()
		out = flushio.Tee(out, tf)
	}
	defer func() { log.ErrorIf(out.Flush()) }()

	drv := newDriver(cfg, log, out)

	for i, expr := range cfg.exprs {
		if !drv.evalString(fmt.Sprintf("<expr %v>", i+1), expr, true) {
			return
		}
	}

	files := cfg.files
	prompt := cfg.interactive
	if len(cfg.exprs) == 0 && len(files) == 0 {
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			prompt = true
		} else {
			files = []string{"-"}
		}
	}

	in, err := fileinput.Open(files...)
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	defer in.Close()
	for in.Next() {
		if !drv.evalSource(in.Name, in, false) {
			return
		}
	}

	if prompt {
		drv.repl()
	}
}

func newDriver(cfg config, log *logio.Logger, out flushio.WriteFlusher) *driver {
	opts := []lispvm.Option{
		lispvm.WithPoolSize(cfg.poolSize),
		lispvm.WithStackLimit(cfg.stackLimit),
		lispvm.WithOutput(out),
	}
	if cfg.trace {
		opts = append(opts, lispvm.WithLogf(log.Leveledf("TRACE")), lispvm.WithTrace(true))
	} else if cfg.verbose {
		opts = append(opts, lispvm.WithLogf(log.Leveledf("DEBUG")))
	}
	return &driver{
		log:     log,
		out:     out,
		timeout: cfg.timeout,
		m:       lispvm.New(opts...),
	}
}
