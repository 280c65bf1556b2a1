package state

import (
	"context"
	"errors"
	"sync"
)

// ErrTrackingTerminated indicates that tracking was terminated while (or
// before) waiting for a change.
var ErrTrackingTerminated = errors.New("tracking terminated")

// Tracker provides index-based state tracking. Each change increments the
// state index and wakes any waiters. It is safe for concurrent usage.
type Tracker struct {
	// lock guards the remaining fields.
	lock sync.Mutex
	// index is the current state index.
	index uint64
	// terminated indicates whether or not tracking has been terminated.
	terminated bool
	// changed is closed (and replaced) whenever the index changes or tracking
	// is terminated.
	changed chan struct{}
}

// NewTracker creates a new tracker instance with state index 1.
func NewTracker() *Tracker {
	return &Tracker{
		index:   1,
		changed: make(chan struct{}),
	}
}

// Index returns the current state index.
func (t *Tracker) Index() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.index
}

// NotifyOfChange increments the state index and wakes waiters. It is a no-op
// after termination.
func (t *Tracker) NotifyOfChange() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.terminated {
		return
	}
	t.index++
	close(t.changed)
	t.changed = make(chan struct{})
}

// Terminate terminates tracking and wakes all waiters. It is idempotent.
func (t *Tracker) Terminate() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.terminated {
		return
	}
	t.terminated = true
	close(t.changed)
}

// WaitForChange waits for the state index to differ from previousIndex. It
// returns the new index, or previousIndex together with the context error if
// the context is cancelled first. If tracking is terminated, it returns the
// current index and ErrTrackingTerminated.
func (t *Tracker) WaitForChange(ctx context.Context, previousIndex uint64) (uint64, error) {
	for {
		// Check the current state and grab the change channel.
		t.lock.Lock()
		index, terminated, changed := t.index, t.terminated, t.changed
		t.lock.Unlock()
		if terminated {
			return index, ErrTrackingTerminated
		} else if index != previousIndex {
			return index, nil
		}

		// Wait for a change or cancellation.
		select {
		case <-changed:
		case <-ctx.Done():
			return previousIndex, ctx.Err()
		}
	}
}
