package watching

// EventQueue is a FIFO queue of normalized events. It isn't safe for
// concurrent usage.
type EventQueue struct {
	// events is the queue storage.
	events []SystemEvent
	// head is the index of the next event to be popped.
	head int
}

// Push appends an event to the queue.
func (q *EventQueue) Push(event SystemEvent) {
	q.events = append(q.events, event)
}

// Pop removes and returns the oldest event in the queue. It returns false if
// the queue is empty.
func (q *EventQueue) Pop() (SystemEvent, bool) {
	if q.head == len(q.events) {
		return SystemEvent{}, false
	}
	event := q.events[q.head]
	q.events[q.head] = SystemEvent{}
	q.head++

	// Reuse storage once drained.
	if q.head == len(q.events) {
		q.events = q.events[:0]
		q.head = 0
	}
	return event, true
}

// Len returns the number of events in the queue.
func (q *EventQueue) Len() int {
	return len(q.events) - q.head
}

// Reset discards all queued events.
func (q *EventQueue) Reset() {
	q.events = q.events[:0]
	q.head = 0
}
