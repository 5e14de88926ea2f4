package ecs

// Event is a generic ECS event payload.
type Event struct {
	Type string
	Data any
}

// EventQueue is a simple FIFO queue. Events pushed during a step stay
// readable until the start of the next step. Events pushed between steps
// survive into the next step.
type EventQueue struct {
	items []Event
	seen  int
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Peek returns the pending events without clearing them.
func (q *EventQueue) Peek() []Event {
	if q == nil {
		return nil
	}
	return q.items
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	q.seen = 0
	return out
}

// flush drops the events that were visible during the last step.
func (q *EventQueue) flush() {
	if q == nil {
		return
	}
	if q.seen >= len(q.items) {
		q.items = nil
	} else {
		q.items = append([]Event(nil), q.items[q.seen:]...)
	}
	q.seen = 0
}

func (q *EventQueue) mark() {
	if q == nil {
		return
	}
	q.seen = len(q.items)
}
