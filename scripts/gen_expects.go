// Command gen_expects generates free function forms of the lispTestCase
// builder methods, so that test tables can apply them with
// lispTestCase.apply.
//
// Usage: go run scripts/gen_expects.go -- lisp_test.go lisp_expects_test.go
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

// builderMethod matches single line lispTestCase builder methods that take
// at least one argument.
var builderMethod = regexp.MustCompile(`^func \(lt lispTestCase\) (expect|with)(\w+)\((.+?)\) lispTestCase \{`)

type builder struct {
	kind   string // expect or with
	what   string
	params string
	args   []string
}

func (b builder) writeTo(w io.Writer) {
	fmt.Fprintf(w, "func %vLisp%v(%v) func(lispTestCase) lispTestCase {\n", b.kind, b.what, b.params)
	fmt.Fprintf(w, "return func(lt lispTestCase) lispTestCase {\n")
	fmt.Fprintf(w, "return lt.%v%v(%v)\n", b.kind, b.what, strings.Join(b.args, ", "))
	fmt.Fprintf(w, "}\n}\n\n")
}

func parseBuilder(line string) (b builder, ok bool) {
	match := builderMethod.FindStringSubmatch(line)
	if match == nil {
		return b, false
	}
	b.kind, b.what, b.params = match[1], match[2], match[3]
	for _, param := range strings.Split(b.params, ",") {
		fields := strings.Fields(param)
		if len(fields) != 2 {
			return b, false
		}
		arg := fields[0]
		if strings.HasPrefix(fields[1], "...") {
			arg += "..."
		}
		b.args = append(b.args, arg)
	}
	return b, true
}

func generate(ctx context.Context, name string, in io.Reader, out io.Writer, command []string) error {
	var buf bytes.Buffer
	buf.WriteString("package lispvm\n\n")
	fmt.Fprintf(&buf, "// @generated from %v\n\n", name)
	if len(command) > 0 {
		fmt.Fprintf(&buf, "//go:generate go run scripts/gen_expects.go -- %v\n\n", strings.Join(command, " "))
	}

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if b, ok := parseBuilder(sc.Text()); ok {
			b.writeTo(&buf)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	_, err := buf.WriteTo(out)
	return err
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 2 {
		log.Fatalf("usage: gen_expects SOURCE_test.go OUTPUT_test.go")
	}

	in, err := os.Open(args[0])
	if err != nil {
		log.Fatalf("failed to open %v: %v", args[0], err)
	}
	defer in.Close()

	out, err := os.Create(args[1])
	if err != nil {
		log.Fatalf("failed to create %v: %v", args[1], err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// source flows through goimports, which both formats it and adds any
	// imports the parameter types need
	fmtr := exec.CommandContext(ctx, "goimports")
	fmtr.Stdout = out
	fmtr.Stderr = os.Stderr
	fmtIn, err := fmtr.StdinPipe()
	if err != nil {
		log.Fatalln(err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer out.Close()
		if err := fmtr.Run(); err != nil {
			return fmt.Errorf("goimports failed: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		defer fmtIn.Close()
		return generate(ctx, args[0], in, fmtIn, args)
	})
	if err := eg.Wait(); err != nil {
		log.Fatalln(err)
	}
}
