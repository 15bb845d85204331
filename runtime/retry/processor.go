package retry

import (
	"errors"
	"fmt"

	"github.com/BDNK1/durable/runtime/history"
)

var (
	// ErrNoPendingActivity means no unprocessed TaskScheduled event exists.
	// During replay this indicates the workflow body changed between runs.
	ErrNoPendingActivity = errors.New("no pending activity call in history")

	// ErrAlreadyResolved means the group starting at the given event was
	// already consumed by an earlier decision.
	ErrAlreadyResolved = errors.New("activity call already resolved")
)

// OutcomeKind is the decision reached for one attempt group.
type OutcomeKind int

const (
	// Retry means the group is unresolved: a new attempt must be scheduled now.
	Retry OutcomeKind = iota
	// Succeeded means an attempt completed.
	Succeeded
	// FinallyFailed means every allowed attempt failed.
	FinallyFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case Retry:
		return "retry"
	case Succeeded:
		return "succeeded"
	case FinallyFailed:
		return "finally_failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of replaying one attempt group.
type Outcome struct {
	Kind OutcomeKind

	// Result is the serialized output of the completing attempt (Succeeded).
	Result string

	// Reason and Details describe the first failure of the group (FinallyFailed).
	Reason  string
	Details string

	// Attempts counts the TaskFailed events attributed to the group.
	Attempts int

	// Start is the TaskScheduled event that opened the group.
	Start history.Handle

	// Consumed lists the events this outcome accounts for, in log order of
	// discovery. Apply them with Processor.Commit.
	Consumed []history.Handle

	resume       history.Handle
	closedFailed int
}

// ShouldRetry reports whether the caller must issue a new attempt now.
func (o Outcome) ShouldRetry() bool {
	return o.Kind == Retry
}

// progress remembers committed groups so that a repeated call on the same
// start event stays deterministic after its events were marked processed.
type progress struct {
	resolved bool
	resume   history.Handle
	failed   int
	reason   string
	details  string
}

// Processor replays attempt groups against a history log.
//
// Process never mutates the log; Commit applies an outcome. A Processor is
// owned by one orchestration pass and is not safe for concurrent use.
type Processor struct {
	groups map[history.Handle]*progress
}

func NewProcessor() *Processor {
	return &Processor{
		groups: make(map[history.Handle]*progress),
	}
}

// Process replays the group opened by the TaskScheduled event at start.
// Repeated calls agree whether the caller applies outcomes with
// Processor.Commit or with history.Log.MarkProcessed.
func Process(log *history.Log, start history.Handle, maxAttempts int) (Outcome, error) {
	return NewProcessor().Process(log, start, maxAttempts)
}

// ProcessNext replays the group opened by the first unprocessed TaskScheduled.
func ProcessNext(log *history.Log, maxAttempts int) (Outcome, error) {
	return NewProcessor().ProcessNext(log, maxAttempts)
}

func (p *Processor) ProcessNext(log *history.Log, maxAttempts int) (Outcome, error) {
	start, ok := log.FirstUnprocessed(history.TaskScheduled)
	if !ok {
		return Outcome{Start: history.None}, ErrNoPendingActivity
	}
	return p.Process(log, start, maxAttempts)
}

func (p *Processor) Process(log *history.Log, start history.Handle, maxAttempts int) (Outcome, error) {
	if maxAttempts < 1 {
		return Outcome{Start: start}, fmt.Errorf("%w: maxNumberOfAttempts must be at least 1, got %d", ErrInvalidPolicy, maxAttempts)
	}
	if !log.Valid(start) {
		return Outcome{Start: start}, fmt.Errorf("start event %d out of range [0, %d)", start, log.Len())
	}
	first := log.At(start)
	if first.Kind != history.TaskScheduled {
		return Outcome{Start: start}, fmt.Errorf("start event %d is %s, expected %s", start, first.Kind, history.TaskScheduled)
	}

	s := &scan{
		log:    log,
		max:    maxAttempts,
		name:   first.Name,
		start:  start,
		sched:  history.None,
		failed: history.None,
		timer:  history.None,
	}

	if g, ok := p.groups[start]; ok {
		if g.resolved {
			return Outcome{Start: start}, ErrAlreadyResolved
		}
		s.from = g.resume
		s.resume = g.resume
		s.attempts = g.failed
		s.closedFailed = g.failed
		s.reason, s.details = g.reason, g.details
		s.haveReason = g.failed > 0
	} else if log.IsProcessed(start) {
		return s.rebuild()
	} else {
		s.sched = start
		s.from = start + 1
		s.resume = start
	}

	return s.run(), nil
}

// rebuild answers a repeated call whose earlier outcome was applied with
// history.Log.MarkProcessed rather than Commit. The group is rescanned with
// processed flags ignored and reports only events not yet processed; a group
// whose resolving events are all processed is already resolved.
func (s *scan) rebuild() (Outcome, error) {
	s.all = true
	s.sched = s.start
	s.from = s.start + 1
	s.resume = s.start

	o := s.run()

	pending := o.Consumed[:0:0]
	for _, h := range o.Consumed {
		if !s.log.IsProcessed(h) {
			pending = append(pending, h)
		}
	}
	if o.Kind != Retry && len(pending) == 0 {
		return Outcome{Start: s.start}, ErrAlreadyResolved
	}
	o.Consumed = pending
	return o, nil
}

// Commit marks the outcome's events processed and records the group so a
// later Process call on the same start event agrees with this one.
func (p *Processor) Commit(log *history.Log, o Outcome) {
	log.MarkProcessed(o.Consumed...)

	switch o.Kind {
	case Succeeded, FinallyFailed:
		p.groups[o.Start] = &progress{resolved: true}
	case Retry:
		if _, seen := p.groups[o.Start]; !seen && len(o.Consumed) == 0 {
			return
		}
		g := &progress{
			resume: o.resume,
			failed: o.closedFailed,
		}
		if o.closedFailed > 0 {
			g.reason, g.details = o.Reason, o.Details
		}
		p.groups[o.Start] = g
	}
}

// scan is the state of one forward pass over a group.
type scan struct {
	log  *history.Log
	max  int
	name string

	start  history.Handle
	from   history.Handle
	resume history.Handle

	// open attempt
	sched  history.Handle
	failed history.Handle
	timer  history.Handle

	attempts     int
	closedFailed int
	reason       string
	details      string
	haveReason   bool

	consumed []history.Handle

	// all makes the scan visit processed events too.
	all bool
}

func (s *scan) run() Outcome {
	for i := s.from; int(i) < s.log.Len(); i++ {
		if !s.all && s.log.IsProcessed(i) {
			continue
		}
		e := s.log.At(i)

		// A new attempt opens only at an unprocessed TaskScheduled of the same activity.
		if s.sched == history.None {
			if e.Kind == history.TaskScheduled && e.Name == s.name {
				s.sched = i
			}
			continue
		}

		switch e.Kind {
		case history.TaskCompleted:
			if e.Answers(s.log.At(s.sched)) {
				s.consume(s.sched, i)
				o := s.outcome(Succeeded)
				o.Result = e.Result
				return o
			}

		case history.TaskFailed:
			if s.failed != history.None || !e.Answers(s.log.At(s.sched)) {
				continue
			}
			s.failed = i
			s.attempts++
			if !s.haveReason {
				s.reason, s.details = e.Reason, e.Details
				s.haveReason = true
			}
			if s.attempts >= s.max {
				s.consume(s.sched, s.failed)
				s.consumeTrailingTimer(i)
				return s.outcome(FinallyFailed)
			}

		case history.TimerCreated:
			if s.failed != history.None && s.timer == history.None {
				s.timer = i
			}

		case history.TimerFired:
			if s.timer != history.None && e.Answers(s.log.At(s.timer)) {
				s.consume(s.sched, s.failed, s.timer, i)
				s.closedFailed = s.attempts
				s.sched, s.failed, s.timer = history.None, history.None, history.None
				s.resume = i + 1
			}
		}
	}

	return s.outcome(Retry)
}

// consumeTrailingTimer takes the retry timer a host may have created for the
// failure that exhausted the policy: the first TimerCreated after the
// failure, unless another attempt of the same activity is scheduled first.
// The final failure never waits for it to fire.
func (s *scan) consumeTrailingTimer(after history.Handle) {
	next, ok := s.log.Find(after+1, func(e history.Event) bool {
		return e.Kind == history.TimerCreated ||
			(e.Kind == history.TaskScheduled && e.Name == s.name)
	})
	if !ok || s.log.At(next).Kind != history.TimerCreated {
		return
	}
	s.consume(next)
	if fired, ok := s.log.Answer(next); ok {
		s.consume(fired)
	}
}

func (s *scan) consume(handles ...history.Handle) {
	s.consumed = append(s.consumed, handles...)
}

func (s *scan) outcome(kind OutcomeKind) Outcome {
	o := Outcome{
		Kind:         kind,
		Attempts:     s.attempts,
		Start:        s.start,
		Consumed:     s.consumed,
		resume:       s.resume,
		closedFailed: s.closedFailed,
	}
	if kind != Succeeded {
		o.Reason, o.Details = s.reason, s.details
	}
	return o
}
