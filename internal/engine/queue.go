package engine

import (
	"sync"

	"github.com/roach88/fxdispatch/internal/ir"
	"github.com/roach88/fxdispatch/internal/normalize"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeAction carries a rule-system event to normalize and dispatch.
	EventTypeAction EventType = iota + 1
	// EventTypeTemplateCreated reports a finalized area template.
	EventTypeTemplateCreated
	// EventTypeEffectRemoved reports that the host removed an effect.
	EventTypeEffectRemoved
	// EventTypeSceneUnloaded reports that a scene was unloaded.
	EventTypeSceneUnloaded
	// EventTypeMessageDeleted reports that the originating message was retracted.
	EventTypeMessageDeleted
	// eventTypeContinuation resumes a scheduled continuation.
	eventTypeContinuation
)

func (t EventType) String() string {
	switch t {
	case EventTypeAction:
		return "action"
	case EventTypeTemplateCreated:
		return "template_created"
	case EventTypeEffectRemoved:
		return "effect_removed"
	case EventTypeSceneUnloaded:
		return "scene_unloaded"
	case EventTypeMessageDeleted:
		return "message_deleted"
	case eventTypeContinuation:
		return "continuation"
	default:
		return "unknown"
	}
}

// TemplateCreated is a finalized area template placed by UserID.
type TemplateCreated struct {
	UserID   string          `json:"user_id" yaml:"user_id"`
	Origin   string          `json:"origin,omitempty" yaml:"origin,omitempty"`
	Template ir.TemplateData `json:"template" yaml:"template"`
}

// EffectRemoved is a confirmed removal of an origin's effects. An empty
// Target covers every target.
type EffectRemoved struct {
	SceneID string      `json:"scene_id" yaml:"scene_id"`
	Origin  string      `json:"origin" yaml:"origin"`
	Target  ir.TokenRef `json:"target,omitempty" yaml:"target,omitempty"`
}

// Event is one host notification for the loop.
type Event struct {
	Type      EventType
	Action    *normalize.Event
	Template  *TemplateCreated
	Removal   *EffectRemoved
	SceneID   string
	MessageID string

	task uint64
}

// ActionEvent wraps a rule-system event.
func ActionEvent(ev normalize.Event) Event {
	return Event{Type: EventTypeAction, Action: &ev}
}

// TemplateCreatedEvent wraps a template notification.
func TemplateCreatedEvent(tc TemplateCreated) Event {
	return Event{Type: EventTypeTemplateCreated, Template: &tc}
}

// EffectRemovedEvent wraps an effect removal.
func EffectRemovedEvent(r EffectRemoved) Event {
	return Event{Type: EventTypeEffectRemoved, Removal: &r}
}

// SceneUnloadedEvent reports an unloaded scene.
func SceneUnloadedEvent(sceneID string) Event {
	return Event{Type: EventTypeSceneUnloaded, SceneID: sceneID}
}

// MessageDeletedEvent reports a retracted message.
func MessageDeletedEvent(messageID string) Event {
	return Event{Type: EventTypeMessageDeleted, MessageID: messageID}
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so timer callbacks can always enqueue their
// continuation without blocking.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Clear the slot so the backing array drops the event's pointers.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
