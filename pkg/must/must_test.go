package must

import (
	"errors"
	"testing"
)

// recorder records invocations and returns a fixed error.
type recorder struct {
	err     error
	closed  bool
	stopped bool
}

func (r *recorder) Close() error {
	r.closed = true
	return r.err
}

func (r *recorder) Stop() error {
	r.stopped = true
	return r.err
}

func TestClose(t *testing.T) {
	for _, err := range []error{nil, errors.New("failure")} {
		r := &recorder{err: err}
		Close(r, nil)
		if !r.closed {
			t.Error("closer not invoked")
		}
	}
}

func TestStop(t *testing.T) {
	for _, err := range []error{nil, errors.New("failure")} {
		r := &recorder{err: err}
		Stop(r, nil)
		if !r.stopped {
			t.Error("stopper not invoked")
		}
	}
}
