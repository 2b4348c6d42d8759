// Package fileinput queues the named streams a driver reads programs from.
package fileinput

import (
	"fmt"
	"io"
	"os"
)

// Input reads a Queue of streams one at a time. Next moves on to the following
// stream, closing the last one if it is an io.Closer; Name tracks the
// current stream for user feedback.
type Input struct {
	Queue []io.Reader
	Name  string
	cur   io.Reader
}

// Open queues the named files; "-" names standard input.
func Open(names ...string) (*Input, error) {
	var in Input
	for _, name := range names {
		if name == "-" {
			in.Queue = append(in.Queue, os.Stdin)
			continue
		}
		f, err := os.Open(name)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.Queue = append(in.Queue, f)
	}
	return &in, nil
}

// Next advances to the next queued stream, returning false once the queue
// is empty.
func (in *Input) Next() bool {
	in.closeCurrent()
	if len(in.Queue) == 0 {
		in.Name = ""
		return false
	}
	in.cur = in.Queue[0]
	in.Queue = in.Queue[1:]
	in.Name = nameOf(in.cur)
	return true
}

// Read reads from the current stream only; it returns io.EOF at the end of
// each one.
func (in *Input) Read(p []byte) (int, error) {
	if in.cur == nil {
		return 0, io.EOF
	}
	return in.cur.Read(p)
}

// Close closes the current stream and every queued one.
func (in *Input) Close() (err error) {
	in.closeCurrent()
	for _, r := range in.Queue {
		if cl, ok := r.(io.Closer); ok && r != os.Stdin {
			if cerr := cl.Close(); err == nil {
				err = cerr
			}
		}
	}
	in.Queue = nil
	return err
}

func (in *Input) closeCurrent() {
	if cl, ok := in.cur.(io.Closer); ok && in.cur != os.Stdin {
		cl.Close()
	}
	in.cur = nil
}

func nameOf(obj interface{}) string {
	if obj == os.Stdin {
		return "<stdin>"
	}
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}
