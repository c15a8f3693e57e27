package timing

import (
	"container/heap"
	"sync"
)

type eventQueue interface {
	Push(*ScheduledEvent)
	Pop() *ScheduledEvent
	Len() int
	Peek() *ScheduledEvent
}

type scheduledEventQueue struct {
	sync.Mutex
	events scheduledEventHeap
}

func newScheduledEventQueue() *scheduledEventQueue {
	q := &scheduledEventQueue{}
	q.events = make([]*ScheduledEvent, 0)
	heap.Init(&q.events)
	return q
}

func (q *scheduledEventQueue) Push(evt *ScheduledEvent) {
	q.Lock()
	heap.Push(&q.events, evt)
	q.Unlock()
}

func (q *scheduledEventQueue) Pop() *ScheduledEvent {
	q.Lock()
	defer q.Unlock()
	if q.events.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.events).(*ScheduledEvent)
}

func (q *scheduledEventQueue) Len() int {
	q.Lock()
	defer q.Unlock()
	return q.events.Len()
}

func (q *scheduledEventQueue) Peek() *ScheduledEvent {
	q.Lock()
	defer q.Unlock()
	if q.events.Len() == 0 {
		return nil
	}
	return q.events[0]
}

type scheduledEventHeap []*ScheduledEvent

func (h scheduledEventHeap) Len() int { return len(h) }

// Less orders by time, then by ID so same-cycle events keep their scheduling
// order.
func (h scheduledEventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].ID < h[j].ID
}

func (h scheduledEventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *scheduledEventHeap) Push(x any) {
	evt := x.(*ScheduledEvent)
	*h = append(*h, evt)
}

func (h *scheduledEventHeap) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return evt
}

// eventQueues pairs the primary and secondary queues that both engines keep.
type eventQueues struct {
	queue          eventQueue
	secondaryQueue eventQueue
}

func newEventQueues() eventQueues {
	return eventQueues{
		queue:          newScheduledEventQueue(),
		secondaryQueue: newScheduledEventQueue(),
	}
}

func (q eventQueues) push(evt *ScheduledEvent) {
	if evt.IsSecondary {
		q.secondaryQueue.Push(evt)
		return
	}

	q.queue.Push(evt)
}

func (q eventQueues) empty() bool {
	return q.queue.Len() == 0 && q.secondaryQueue.Len() == 0
}

// peek returns the event that pop would return, without removing it.
// Primary events win ties with secondary events of the same cycle.
func (q eventQueues) peek() *ScheduledEvent {
	primary := q.queue.Peek()
	secondary := q.secondaryQueue.Peek()

	switch {
	case primary == nil:
		return secondary
	case secondary == nil:
		return primary
	case primary.Time <= secondary.Time:
		return primary
	default:
		return secondary
	}
}

func (q eventQueues) pop() *ScheduledEvent {
	next := q.peek()
	if next == nil {
		return nil
	}

	if next.IsSecondary {
		return q.secondaryQueue.Pop()
	}

	return q.queue.Pop()
}
