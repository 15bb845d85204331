package history

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the type of a history event.
// The numbering follows the host's HistoryEventType enumeration so that
// numeric payloads decode without a lookup table.
type Kind int

const (
	ExecutionStarted Kind = iota
	ExecutionCompleted
	ExecutionFailed
	ExecutionTerminated
	TaskScheduled
	TaskCompleted
	TaskFailed
	SubOrchestrationInstanceCreated
	SubOrchestrationInstanceCompleted
	SubOrchestrationInstanceFailed
	TimerCreated
	TimerFired
	OrchestratorStarted
	OrchestratorCompleted
	EventSent
	EventRaised
	ContinueAsNew
	GenericEvent
	HistoryState
)

var kindNames = [...]string{
	"ExecutionStarted",
	"ExecutionCompleted",
	"ExecutionFailed",
	"ExecutionTerminated",
	"TaskScheduled",
	"TaskCompleted",
	"TaskFailed",
	"SubOrchestrationInstanceCreated",
	"SubOrchestrationInstanceCompleted",
	"SubOrchestrationInstanceFailed",
	"TimerCreated",
	"TimerFired",
	"OrchestratorStarted",
	"OrchestratorCompleted",
	"EventSent",
	"EventRaised",
	"ContinueAsNew",
	"GenericEvent",
	"HistoryState",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves an event type name, ignoring case.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown history event type %q", name)
}

// Event is one immutable fact recorded by the host.
//
// Events that originate a correlation (TaskScheduled, TimerCreated) carry a
// usable EventID. Events that answer one (TaskCompleted, TaskFailed,
// TimerFired) reference their origin through TaskScheduledID or TimerID.
type Event struct {
	EventID         int
	Kind            Kind
	TaskScheduledID int
	TimerID         int
	Name            string
	Input           string
	Result          string
	Reason          string
	Details         string
	Timestamp       time.Time
	IsPlayed        bool
}

// Answers reports whether e is the completion, failure or firing of origin.
func (e Event) Answers(origin Event) bool {
	switch e.Kind {
	case TaskCompleted, TaskFailed:
		return origin.Kind == TaskScheduled && e.TaskScheduledID == origin.EventID
	case TimerFired:
		return origin.Kind == TimerCreated && e.TimerID == origin.EventID
	default:
		return false
	}
}

func (e Event) String() string {
	switch e.Kind {
	case TaskCompleted, TaskFailed:
		return fmt.Sprintf("%s->%d", e.Kind, e.TaskScheduledID)
	case TimerFired:
		return fmt.Sprintf("%s->%d", e.Kind, e.TimerID)
	default:
		return fmt.Sprintf("%s#%d", e.Kind, e.EventID)
	}
}
