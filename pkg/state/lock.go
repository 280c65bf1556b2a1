package state

import (
	"sync"
)

// TrackingLock is a mutex whose release notifies a tracker of a state change.
// Holders that only read the guarded state should release it with
// UnlockWithoutNotify so that waiters aren't woken needlessly.
type TrackingLock struct {
	sync.Mutex
	// tracker is notified on each Unlock.
	tracker *Tracker
}

// NewTrackingLock creates a tracking lock that notifies the specified tracker.
func NewTrackingLock(tracker *Tracker) *TrackingLock {
	return &TrackingLock{tracker: tracker}
}

// Unlock releases the lock and notifies the tracker.
func (l *TrackingLock) Unlock() {
	l.Mutex.Unlock()
	l.tracker.NotifyOfChange()
}

// UnlockWithoutNotify releases the lock without notifying the tracker.
func (l *TrackingLock) UnlockWithoutNotify() {
	l.Mutex.Unlock()
}
