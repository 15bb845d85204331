// Package historytest builds orchestration histories for tests.
package historytest

import "github.com/BDNK1/durable/runtime/history"

// Builder appends events with increasing event ids, the way a host records
// them for a single orchestration instance.
type Builder struct {
	nextID int
	events []history.Event
}

func New() *Builder {
	return &Builder{}
}

func (b *Builder) id() int {
	id := b.nextID
	b.nextID++
	return id
}

// Started records the ExecutionStarted event carrying the serialized input.
func (b *Builder) Started(input string) *Builder {
	b.events = append(b.events, history.Event{Kind: history.ExecutionStarted, EventID: -1, Input: input})
	return b
}

// Scheduled records a TaskScheduled for name and leaves it unanswered.
func (b *Builder) Scheduled(name string) *Builder {
	b.schedule(name)
	return b
}

// Success records a scheduled activity that completed with result.
func (b *Builder) Success(name, result string) *Builder {
	sid := b.schedule(name)
	b.events = append(b.events, history.Event{Kind: history.TaskCompleted, EventID: -1, TaskScheduledID: sid, Result: result})
	return b
}

// Failure records a scheduled activity that failed with reason, followed by
// the retry timer when withTimer is set.
func (b *Builder) Failure(name, reason string, withTimer bool) *Builder {
	sid := b.schedule(name)
	b.events = append(b.events, history.Event{Kind: history.TaskFailed, EventID: -1, TaskScheduledID: sid, Reason: reason})
	if withTimer {
		tid := b.id()
		b.events = append(b.events,
			history.Event{Kind: history.TimerCreated, EventID: tid},
			history.Event{Kind: history.TimerFired, EventID: -1, TimerID: tid},
		)
	}
	return b
}

func (b *Builder) Events() []history.Event {
	return append([]history.Event(nil), b.events...)
}

func (b *Builder) Log() *history.Log {
	return history.NewLog(b.Events()...)
}

func (b *Builder) schedule(name string) int {
	sid := b.id()
	b.events = append(b.events, history.Event{Kind: history.TaskScheduled, EventID: sid, Name: name})
	return sid
}
