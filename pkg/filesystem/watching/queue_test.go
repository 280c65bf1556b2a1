package watching

import (
	"testing"
)

// TestEventQueueOrder tests that the queue is first-in, first-out across
// interleaved pushes and pops.
func TestEventQueueOrder(t *testing.T) {
	var queue EventQueue
	if _, ok := queue.Pop(); ok {
		t.Fatal("pop succeeded on empty queue")
	}
	queue.Push(SystemEvent{Path: "a"})
	queue.Push(SystemEvent{Path: "b"})
	if event, ok := queue.Pop(); !ok || event.Path != "a" {
		t.Fatal("unexpected first event:", event)
	}
	queue.Push(SystemEvent{Path: "c"})
	if queue.Len() != 2 {
		t.Fatal("unexpected queue length:", queue.Len())
	}
	for _, expected := range []string{"b", "c"} {
		if event, ok := queue.Pop(); !ok || event.Path != expected {
			t.Fatalf("unexpected event %v, expected %s", event, expected)
		}
	}
	if queue.Len() != 0 {
		t.Error("queue not empty")
	}
}

// TestEventQueueReset tests queue reset.
func TestEventQueueReset(t *testing.T) {
	var queue EventQueue
	queue.Push(SystemEvent{Path: "a"})
	queue.Reset()
	if _, ok := queue.Pop(); ok {
		t.Error("pop succeeded after reset")
	}
}
