// Package panicerr converts panics into errors at a call boundary.
package panicerr

import "runtime/debug"

// Recover runs f in a new goroutine, waiting for it to finish. Errors passed
// to Raise come back as-is; any other panic, or a runtime.Goexit, comes back
// as an error describing it.
func Recover(name string, f func() error) error {
	errch := make(chan error, 1)
	go func() {
		returned := false
		defer func() {
			if !returned {
				errch <- recovered(name, recover())
			}
		}()
		err := f()
		returned = true
		errch <- err
	}()
	return <-errch
}

// recovered converts the value of recover(); nil means f never returned
// yet did not panic, so it must have called runtime.Goexit.
func recovered(name string, e interface{}) error {
	switch v := e.(type) {
	case nil:
		return exitError(name)
	case raised:
		return v.error
	default:
		return panicError{name, e, debug.Stack()}
	}
}

// Raise unwinds to the nearest Recover, which returns err unchanged.
func Raise(err error) {
	panic(raised{err})
}

type raised struct{ error }
