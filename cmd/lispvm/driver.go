package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jcorbin/lispvm"
	"github.com/jcorbin/lispvm/internal/flushio"
	"github.com/jcorbin/lispvm/internal/logio"
	"github.com/jcorbin/lispvm/internal/panicerr"
	"github.com/jcorbin/lispvm/internal/reader"
)

type driver struct {
	log     *logio.Logger
	out     flushio.WriteFlusher
	timeout time.Duration
	m       *lispvm.Machine

	// interactive errors are reported without failing the exit code
	interactive bool
}

// context bounds one top level evaluation; an interrupt cancels it.
func (drv *driver) context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	if drv.timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, drv.timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func (drv *driver) evalString(name, src string, echo bool) bool {
	return drv.evalSource(name, strings.NewReader(src), echo)
}

// evalSource reads all of src before evaluating any of it, stopping at the
// first error.
func (drv *driver) evalSource(name string, src io.Reader, echo bool) bool {
	data, err := reader.ReadAll(name, src)
	if err != nil {
		drv.report(err)
		return false
	}
	return drv.evalData(name, data, echo)
}

func (drv *driver) evalData(name string, data []reader.Datum, echo bool) bool {
	defer drv.m.LogPrefix(name + ": ")()
	for _, d := range data {
		ctx, cancel := drv.context()
		val, err := drv.m.EvalData(ctx, d)
		cancel()
		if err != nil {
			drv.report(err)
			return false
		}
		if echo {
			drv.print(val)
		}
	}
	return true
}

func (drv *driver) print(val lispvm.Ref) {
	fmt.Fprintln(drv.out, drv.m.Sprint(val))
	drv.log.ErrorIf(drv.out.Flush())
}

func (drv *driver) report(err error) {
	format := "%v"
	if panicerr.IsPanic(err) {
		format = "%+v"
	}
	if drv.interactive && drv.m.Err() == nil {
		drv.log.Printf("ERROR", format, err)
	} else {
		drv.log.Errorf(format, err)
	}
}

// command runs a comma command, returning false to end the session.
func (drv *driver) command(cmd string) bool {
	switch cmd {
	case ",dump":
		drv.m.Dump(drv.out)
	case ",stats":
		fmt.Fprintln(drv.out, drv.m.Stats())
	case ",gc":
		drv.m.Collect()
		fmt.Fprintln(drv.out, drv.m.Stats())
	case ",quit", ",q":
		return false
	default:
		fmt.Fprintf(drv.out, "unknown command %v; try ,dump ,stats ,gc or ,quit\n", cmd)
	}
	drv.log.ErrorIf(drv.out.Flush())
	return true
}

// repl prompts for expressions until end of input, collecting lines until
// they read as complete forms. It stops early once the machine has failed.
func (drv *driver) repl() {
	drv.interactive = true
	defer func() { drv.interactive = false }()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	var buf strings.Builder
	for drv.m.Err() == nil {
		prompt := "> "
		if buf.Len() > 0 {
			prompt = ". "
		}
		text, err := line.Prompt(prompt)
		switch err {
		case nil:
		case liner.ErrPromptAborted:
			buf.Reset()
			continue
		case io.EOF:
			fmt.Fprintln(drv.out)
			drv.log.ErrorIf(drv.out.Flush())
			return
		default:
			drv.log.Errorf("%v", err)
			return
		}

		if cmd := strings.TrimSpace(text); buf.Len() == 0 && strings.HasPrefix(cmd, ",") {
			line.AppendHistory(cmd)
			if !drv.command(cmd) {
				return
			}
			continue
		}

		buf.WriteString(text)
		buf.WriteByte('\n')
		data, err := reader.ReadString("<repl>", buf.String())
		if errors.Is(err, io.ErrUnexpectedEOF) {
			continue
		}
		if src := strings.TrimSpace(buf.String()); src != "" {
			line.AppendHistory(src)
		}
		buf.Reset()
		if err != nil {
			drv.report(err)
			continue
		}
		drv.evalData("<repl>", data, true)
	}
}
