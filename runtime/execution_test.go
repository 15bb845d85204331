package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/BDNK1/durable/runtime/history"
	"github.com/BDNK1/durable/runtime/history/historytest"
)

type ctxKey struct{}

func newTestExecution(t *testing.T, log *history.Log) *Execution {
	t.Helper()
	ctx := context.WithValue(context.Background(), ctxKey{}, "from-ctx")
	o := &Orchestration{Name: "test", Engine: EngineFunc}
	exec, err := NewExecution(ctx, o, "", log, nil)
	if err != nil {
		t.Fatalf("NewExecution: %v", err)
	}
	t.Cleanup(exec.release)
	return exec
}

func TestNewExecution_Input(t *testing.T) {
	tests := []struct {
		name  string
		log   *history.Log
		want  any
		check func(t *testing.T, got any)
	}{
		{
			name: "json object",
			log:  historytest.New().Started(`{"city":"Tokyo"}`).Log(),
			check: func(t *testing.T, got any) {
				if m, ok := got.(map[string]any); !ok || m["city"] != "Tokyo" {
					t.Errorf("input = %#v", got)
				}
			},
		},
		{
			name: "json string",
			log:  historytest.New().Started(`"Tokyo"`).Log(),
			want: "Tokyo",
		},
		{
			name: "raw text",
			log:  historytest.New().Started(`Tokyo`).Log(),
			want: "Tokyo",
		},
		{
			name: "no execution started",
			log:  history.NewLog(),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newTestExecution(t, tt.log)
			if tt.check != nil {
				tt.check(t, exec.Input)
				return
			}
			if exec.Input != tt.want {
				t.Errorf("input = %#v, want %#v", exec.Input, tt.want)
			}
			if v, _ := exec.Store.Get("input"); v != tt.want {
				t.Errorf("stored input = %#v, want %#v", v, tt.want)
			}
		})
	}
}

func TestNewExecution_GeneratesIDs(t *testing.T) {
	a := newTestExecution(t, history.NewLog())
	b := newTestExecution(t, history.NewLog())

	if a.ID == "" || a.InstanceID == "" {
		t.Fatalf("expected generated ids, got %q / %q", a.ID, a.InstanceID)
	}
	if a.ID == b.ID || a.InstanceID == b.InstanceID {
		t.Error("expected unique ids per execution")
	}
}

func TestNewExecution_MissingPropertyVariable(t *testing.T) {
	o := &Orchestration{Name: "test", Engine: EngineFunc, Properties: map[string]any{"token": "${TEST_DURABLE_UNSET_TOKEN}"}}
	if _, err := NewExecution(context.Background(), o, "i", history.NewLog(), nil); err == nil {
		t.Fatal("expected error for unset property variable")
	}
}

func TestExecution_Value(t *testing.T) {
	exec := newTestExecution(t, history.NewLog())
	exec.AddValue("step.result", "stored")

	if v := exec.Value("step.result"); v != "stored" {
		t.Errorf("Value(step.result) = %v", v)
	}
	if v := exec.Value(ctxKey{}); v != "from-ctx" {
		t.Errorf("Value(ctxKey) = %v, want ctx fallback", v)
	}
	if v := exec.Value("missing"); v != nil {
		t.Errorf("Value(missing) = %v, want nil", v)
	}
}

func TestExecution_CallActivityReplaysInOrder(t *testing.T) {
	log := historytest.New().
		Success("A", `1`).
		Success("B", `{"ok":true}`).
		Log()
	exec := newTestExecution(t, log)

	a, err := exec.CallActivity("A", nil)
	if err != nil || a != float64(1) {
		t.Fatalf("A = %v, %v", a, err)
	}
	b, err := exec.CallActivity("B", nil)
	if err != nil {
		t.Fatalf("B error: %v", err)
	}
	if m, ok := b.(map[string]any); !ok || m["ok"] != true {
		t.Errorf("B = %#v", b)
	}

	if got := len(log.Processed()); got != 4 {
		t.Errorf("processed %d events, want 4", got)
	}
	if got := len(exec.Collector().Batches()[0]); got != 2 {
		t.Errorf("collected %d actions, want 2", got)
	}
}

func TestExecution_SuspendReturnsAfterCancel(t *testing.T) {
	exec := newTestExecution(t, history.NewLog())

	errc := make(chan error, 1)
	go func() {
		_, err := exec.CallActivity("A", nil)
		errc <- err
	}()

	<-exec.Collector().Stopped()
	exec.cancel()

	if err := <-errc; !IsStopped(err) {
		t.Fatalf("expected ErrReplayStopped, got %v", err)
	}
}

func TestExecution_FailKeepsFirst(t *testing.T) {
	exec := newTestExecution(t, history.NewLog())

	first := &OrchestrationFailure{Code: "FIRST"}
	err := exec.Fail(first)
	exec.Fail(&OrchestrationFailure{Code: "SECOND"})

	var f *OrchestrationFailure
	if !errors.As(err, &f) || f != first {
		t.Errorf("Fail returned %v", err)
	}
	if exec.Failure() != first {
		t.Errorf("Failure() = %v, want first", exec.Failure())
	}
}

func TestExecution_ReleaseDropsValues(t *testing.T) {
	exec := newTestExecution(t, history.NewLog())
	exec.AddValue("k", "v")

	exec.release()

	if _, ok := exec.Store.Get("k"); ok {
		t.Error("values kept after release")
	}
	if exec.Err() == nil {
		t.Error("context not cancelled after release")
	}
}
