// Package flushio adapts writers for buffered program output that the
// machine flushes at the end of every evaluation.
package flushio

import (
	"bufio"
	"io"
	"io/ioutil"
)

// WriteFlusher is an io.Writer whose buffered output is committed by Flush.
type WriteFlusher interface {
	io.Writer
	Flush() error
}

// NewWriteFlusher returns w itself if it already flushes, w with a no-op
// Flush if it is an in-memory buffer or ioutil.Discard, and w behind a
// bufio.Writer otherwise.
func NewWriteFlusher(w io.Writer) WriteFlusher {
	switch impl := w.(type) {
	case nil:
		return nopFlusher{ioutil.Discard}
	case WriteFlusher:
		return impl
	case buffer:
		return nopFlusher{w}
	}
	if w == ioutil.Discard {
		return nopFlusher{w}
	}
	return bufio.NewWriter(w)
}

// buffer matches bytes.Buffer and strings.Builder.
type buffer interface {
	io.Writer
	Len() int
	Grow(n int)
	Reset()
}

type nopFlusher struct{ io.Writer }

func (nf nopFlusher) Flush() error { return nil }

// Tee returns a WriteFlusher that writes to and flushes every one of wfs in
// order; nil entries are skipped, and nested tees are flattened.
func Tee(wfs ...WriteFlusher) WriteFlusher {
	var all tee
	for _, wf := range wfs {
		switch impl := wf.(type) {
		case nil:
		case tee:
			all = append(all, impl...)
		default:
			all = append(all, impl)
		}
	}
	switch len(all) {
	case 0:
		return nopFlusher{ioutil.Discard}
	case 1:
		return all[0]
	}
	return all
}

type tee []WriteFlusher

func (t tee) Write(p []byte) (int, error) {
	for _, wf := range t {
		n, err := wf.Write(p)
		if err == nil && n != len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return n, err
		}
	}
	return len(p), nil
}

// Flush flushes every writer, returning the first error.
func (t tee) Flush() (err error) {
	for _, wf := range t {
		if ferr := wf.Flush(); err == nil {
			err = ferr
		}
	}
	return err
}
