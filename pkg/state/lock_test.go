package state

import (
	"sync"
	"testing"
)

// TestTrackingLock tests that only notifying unlocks change the state index.
func TestTrackingLock(t *testing.T) {
	tracker := NewTracker()
	lock := NewTrackingLock(tracker)

	lock.Lock()
	lock.UnlockWithoutNotify()
	if index := tracker.Index(); index != 1 {
		t.Fatal("read-only unlock changed state index:", index)
	}

	lock.Lock()
	lock.Unlock()
	if index := tracker.Index(); index != 2 {
		t.Fatal("notifying unlock did not change state index:", index)
	}
}

// TestTrackingLockLocker tests that a tracking lock can be used as a
// sync.Locker, in which case every release notifies.
func TestTrackingLockLocker(t *testing.T) {
	tracker := NewTracker()
	var locker sync.Locker = NewTrackingLock(tracker)
	locker.Lock()
	locker.Unlock()
	if index := tracker.Index(); index != 2 {
		t.Fatal("unlock through sync.Locker did not change state index:", index)
	}
}
