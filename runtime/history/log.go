package history

// Handle is the stable position of an event inside a Log, assigned at
// ingestion. Two structurally identical events always have distinct handles.
type Handle int

// None is returned by lookups that found nothing.
const None Handle = -1

// Log is the ordered history of one orchestration instance together with
// the set of events already consumed by a decision.
//
// A Log is owned by a single decision pass and is not safe for concurrent
// mutation; the execution goroutine is the only writer.
type Log struct {
	events    []Event
	processed []bool
}

// NewLog copies events into a new Log with nothing processed.
func NewLog(events ...Event) *Log {
	l := &Log{
		events:    make([]Event, len(events)),
		processed: make([]bool, len(events)),
	}
	copy(l.events, events)
	return l
}

func (l *Log) Len() int {
	return len(l.events)
}

// Valid reports whether h addresses an event of this log.
func (l *Log) Valid(h Handle) bool {
	return h >= 0 && int(h) < len(l.events)
}

// At returns the event at h. It panics if h is out of range.
func (l *Log) At(h Handle) Event {
	return l.events[h]
}

// Events returns a copy of the underlying events in order.
func (l *Log) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *Log) IsProcessed(h Handle) bool {
	return l.processed[h]
}

// MarkProcessed consumes the given events. Marking is idempotent.
func (l *Log) MarkProcessed(handles ...Handle) {
	for _, h := range handles {
		l.processed[h] = true
	}
}

// Processed lists consumed handles in log order.
func (l *Log) Processed() []Handle {
	var out []Handle
	for i, p := range l.processed {
		if p {
			out = append(out, Handle(i))
		}
	}
	return out
}

// FirstUnprocessed returns the first unconsumed event of the given kind.
func (l *Log) FirstUnprocessed(kind Kind) (Handle, bool) {
	return l.Find(0, func(e Event) bool { return e.Kind == kind })
}

// Find returns the first unconsumed event at or after from that matches.
func (l *Log) Find(from Handle, match func(Event) bool) (Handle, bool) {
	if from < 0 {
		from = 0
	}
	for i := int(from); i < len(l.events); i++ {
		if l.processed[i] {
			continue
		}
		if match(l.events[i]) {
			return Handle(i), true
		}
	}
	return None, false
}

// Answer returns the first unconsumed event after origin that completes,
// fails or fires it.
func (l *Log) Answer(origin Handle) (Handle, bool) {
	o := l.events[origin]
	return l.Find(origin+1, func(e Event) bool { return e.Answers(o) })
}

// Count returns how many events of the given kind the log holds.
func (l *Log) Count(kind Kind) int {
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Input returns the orchestration input recorded by ExecutionStarted.
func (l *Log) Input() (string, bool) {
	for _, e := range l.events {
		if e.Kind == ExecutionStarted {
			return e.Input, e.Input != ""
		}
	}
	return "", false
}
