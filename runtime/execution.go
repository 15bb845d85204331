package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BDNK1/durable/runtime/action"
	"github.com/BDNK1/durable/runtime/history"
	"github.com/BDNK1/durable/runtime/retry"
)

var _ context.Context = &Execution{}

// Execution is the state of one orchestration pass. Orchestration bodies
// receive it and use it as their context.Context.
//
// Activity calls replay against History: a call whose outcome is recorded
// returns it, a call that still needs the host stops the pass.
type Execution struct {
	ID            string // unique per pass
	InstanceID    string
	Orchestration *Orchestration
	Input         any
	History       *history.Log
	Store         ValueStore

	collector *action.Collector
	retries   *retry.Processor
	l         *slog.Logger

	mu           sync.Mutex
	customStatus any
	failure      *OrchestrationFailure

	ctx    context.Context // real context carrying deadline/cancellation
	cancel context.CancelFunc
}

// context.Context implementation: delegates to the embedded ctx so that
// cancelling a stopped pass reaches slog, Risor and blocked activity calls.

func (e *Execution) Deadline() (deadline time.Time, ok bool) {
	return e.ctx.Deadline()
}

func (e *Execution) Done() <-chan struct{} {
	return e.ctx.Done()
}

func (e *Execution) Err() error {
	return e.ctx.Err()
}

func (e *Execution) Value(key any) any {
	k, ok := key.(string)
	if !ok {
		return e.ctx.Value(key)
	}
	if v, ok := e.Store.Get(k); ok {
		return v
	}
	return e.ctx.Value(key)
}

// NewExecution prepares a pass of o over log. The orchestration input is
// taken from the ExecutionStarted event. Properties are resolved from
// globalProperties first, then the orchestration's own (which win).
func NewExecution(ctx context.Context, o *Orchestration, instanceID string, log *history.Log, globalProperties map[string]any) (*Execution, error) {
	if instanceID == "" {
		instanceID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(ctx)
	exec := &Execution{
		ID:            uuid.New().String(),
		InstanceID:    instanceID,
		Orchestration: o,
		History:       log,
		Store:         NewValueStore(),
		collector:     action.NewCollector(),
		retries:       retry.NewProcessor(),
		l:             slog.Default(),
		ctx:           ctx,
		cancel:        cancel,
	}

	if raw, ok := log.Input(); ok {
		exec.Input = decodePayload(raw)
	}
	exec.AddValue("input", exec.Input)
	exec.AddValue("instanceId", instanceID)

	for _, props := range []map[string]any{globalProperties, o.Properties} {
		for k, v := range props {
			resolved, err := resolveEnvVars(v)
			if err != nil {
				cancel()
				return nil, fmt.Errorf("property %s: %w", k, err)
			}
			exec.AddValue("properties."+k, resolved)
		}
	}

	return exec, nil
}

func (e *Execution) AddValue(k string, v any) {
	e.Store.Set(k, v)
}

// Values returns the full context map for expression evaluation.
func (e *Execution) Values() map[string]any {
	return e.Store.All()
}

func (e *Execution) Collector() *action.Collector {
	return e.collector
}

func (e *Execution) Logger() *slog.Logger {
	return e.l
}

// CallActivity requests a single attempt of an activity. It returns the
// activity's decoded result once history records its completion.
func (e *Execution) CallActivity(name string, input any) (any, error) {
	e.collector.Add(action.CallActivity{FunctionName: name, Input: input})

	sched, found, err := e.pending(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, e.suspend(name)
	}

	answer, ok := e.History.Answer(sched)
	if !ok {
		return nil, e.suspend(name)
	}
	e.History.MarkProcessed(sched, answer)

	ev := e.History.At(answer)
	if ev.Kind == history.TaskFailed {
		return nil, e.Fail(ActivityFailure(name, ev.Reason, ev.Details, 1))
	}
	e.l.DebugContext(e, "Activity replayed", "activity", name, "event_id", e.History.At(sched).EventID)
	return decodePayload(ev.Result), nil
}

// CallActivityWithRetry requests an activity that the host retries under
// policy. It returns the result of the first successful attempt and fails
// the orchestration with the first failure reason once every attempt failed.
func (e *Execution) CallActivityWithRetry(name string, input any, policy retry.Policy) (any, error) {
	e.collector.Add(action.CallActivityWithRetry{FunctionName: name, Input: input, RetryOptions: policy})

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	sched, found, err := e.pending(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, e.suspend(name)
	}

	outcome, err := e.retries.Process(e.History, sched, policy.MaxNumberOfAttempts)
	if err != nil {
		return nil, fmt.Errorf("replaying activity %s: %w", name, err)
	}
	e.retries.Commit(e.History, outcome)

	switch outcome.Kind {
	case retry.Succeeded:
		e.l.DebugContext(e, "Activity replayed", "activity", name, "attempts", outcome.Attempts+1)
		return decodePayload(outcome.Result), nil
	case retry.FinallyFailed:
		e.l.InfoContext(e, fmt.Sprintf("Activity %s failed after %d attempts", name, outcome.Attempts),
			"reason", outcome.Reason)
		return nil, e.Fail(ActivityFailure(name, outcome.Reason, outcome.Details, outcome.Attempts))
	default:
		return nil, e.suspend(name)
	}
}

// SetCustomStatus records a value reported with the decision.
func (e *Execution) SetCustomStatus(v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.customStatus = v
}

func (e *Execution) CustomStatus() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.customStatus
}

// Fail records f as the orchestration's final failure and returns it, so
// hosts can propagate it as the body's error.
func (e *Execution) Fail(f *OrchestrationFailure) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failure == nil {
		e.failure = f
	}
	return f
}

// Failure returns the failure recorded by Fail, if any.
func (e *Execution) Failure() *OrchestrationFailure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failure
}

// pending returns the first unprocessed TaskScheduled, checking that it was
// recorded for the same activity.
func (e *Execution) pending(name string) (history.Handle, bool, error) {
	sched, ok := e.History.FirstUnprocessed(history.TaskScheduled)
	if !ok {
		return history.None, false, nil
	}
	ev := e.History.At(sched)
	if ev.Name != "" && name != "" && ev.Name != name {
		return history.None, false, &NondeterminismError{Expected: ev.Name, Actual: name, EventID: ev.EventID}
	}
	return sched, true, nil
}

// suspend stops the pass and blocks until the runner cancels it.
func (e *Execution) suspend(name string) error {
	e.l.DebugContext(e, "Waiting for activity", "activity", name)
	e.collector.Stop()
	<-e.ctx.Done()
	return ErrReplayStopped
}

// release cancels the pass context and drops buffered values.
func (e *Execution) release() {
	e.cancel()
	if r, ok := e.Store.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// decodePayload decodes a serialized activity result or orchestration
// input. Values that are not JSON are returned as the raw string.
func decodePayload(raw string) any {
	if raw == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// IsStopped reports whether err means the pass was stopped for new history.
func IsStopped(err error) bool {
	return errors.Is(err, ErrReplayStopped)
}
