package dsl_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/BDNK1/durable/runtime"
	"github.com/BDNK1/durable/runtime/action"
	"github.com/BDNK1/durable/runtime/engine/dsl"
	"github.com/BDNK1/durable/runtime/history"
	"github.com/BDNK1/durable/runtime/history/historytest"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func decide(t *testing.T, body string, log *history.Log) (*runtime.Decision, error) {
	t.Helper()

	app := runtime.NewApp()
	app.RegisterHost(runtime.EngineRisor, dsl.NewHost(discard))
	if err := app.Register(runtime.Orchestration{Name: "test", Engine: runtime.EngineRisor, Body: body}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return runtime.NewRunner(discard, app).Run(ctx, runtime.Request{
		Orchestration: "test",
		InstanceID:    "instance-1",
		History:       log,
	})
}

func mustDecide(t *testing.T, body string, log *history.Log) *runtime.Decision {
	t.Helper()
	d, err := decide(t, body, log)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return d
}

const greet = `
a := activity.call("SayHello", "Tokyo")
b := activity.call("SayHello", "Seattle")
[a, b]
`

func TestHost_NewCallStopsPass(t *testing.T) {
	d := mustDecide(t, greet, historytest.New().Started(`"world"`).Log())

	if d.IsDone {
		t.Fatal("expected pass to wait for history")
	}
	want := [][]action.Action{{action.CallActivity{FunctionName: "SayHello", Input: "Tokyo"}}}
	if !reflect.DeepEqual(d.Actions, want) {
		t.Errorf("actions = %#v, want %#v", d.Actions, want)
	}
}

func TestHost_PartialHistory(t *testing.T) {
	log := historytest.New().Success("SayHello", `"Hello Tokyo!"`).Log()

	d := mustDecide(t, greet, log)

	if d.IsDone {
		t.Fatal("expected pass to wait for the second call")
	}
	if d.ActionCount() != 2 {
		t.Errorf("got %d actions, want 2", d.ActionCount())
	}
}

func TestHost_CompletesFromHistory(t *testing.T) {
	log := historytest.New().
		Success("SayHello", `"Hello Tokyo!"`).
		Success("SayHello", `"Hello Seattle!"`).
		Log()

	d := mustDecide(t, greet, log)

	if !d.IsDone {
		t.Fatal("expected completed decision")
	}
	want := []any{"Hello Tokyo!", "Hello Seattle!"}
	if !reflect.DeepEqual(d.Output, want) {
		t.Errorf("output = %#v, want %#v", d.Output, want)
	}
	if d.Error != nil {
		t.Errorf("unexpected failure: %v", d.Error)
	}
}

const charge = `
activity.call_with_retry("Charge", 100, {"firstRetryInterval": "5s", "maxNumberOfAttempts": 2})
`

func TestHost_RetryPending(t *testing.T) {
	log := historytest.New().Failure("Charge", "card declined", true).Log()

	d := mustDecide(t, charge, log)

	if d.IsDone {
		t.Fatal("expected pass to wait for the retry")
	}
	got, ok := d.Actions[0][0].(action.CallActivityWithRetry)
	if !ok {
		t.Fatalf("action = %T, want CallActivityWithRetry", d.Actions[0][0])
	}
	if got.FunctionName != "Charge" || got.RetryOptions.MaxNumberOfAttempts != 2 || got.RetryOptions.FirstRetryInterval != 5*time.Second {
		t.Errorf("unexpected action: %+v", got)
	}
}

func TestHost_RetrySucceeds(t *testing.T) {
	log := historytest.New().
		Failure("Charge", "card declined", true).
		Success("Charge", `{"id":"ch_1"}`).
		Log()

	d := mustDecide(t, charge, log)

	if !d.IsDone {
		t.Fatal("expected completed decision")
	}
	if !reflect.DeepEqual(d.Output, map[string]any{"id": "ch_1"}) {
		t.Errorf("output = %#v", d.Output)
	}
}

func TestHost_RetryFailsWithFirstReason(t *testing.T) {
	log := historytest.New().
		Failure("Charge", "card declined", true).
		Failure("Charge", "network error", false).
		Log()

	d := mustDecide(t, charge, log)

	if !d.IsDone || d.Error == nil {
		t.Fatalf("expected failed decision, got %+v", d)
	}
	if d.Error.Code != string(runtime.ErrorCodeActivityFailed) {
		t.Errorf("code = %q", d.Error.Code)
	}
	if d.Error.Message != "card declined" || d.Error.Activity != "Charge" || d.Error.Attempts != 2 {
		t.Errorf("unexpected failure: %+v", d.Error)
	}
}

func TestHost_InvalidRetryOptions(t *testing.T) {
	body := `activity.call_with_retry("Charge", 100, {"maxNumberOfAttempts": 0})`

	_, err := decide(t, body, historytest.New().Log())
	if err == nil {
		t.Fatal("expected error for invalid retry options")
	}
}

func TestHost_Raise(t *testing.T) {
	body := `raise("INVALID_ORDER", "amount must be positive", {"field": "amount"})`

	d := mustDecide(t, body, historytest.New().Log())

	if !d.IsDone || d.Error == nil {
		t.Fatalf("expected failed decision, got %+v", d)
	}
	want := &runtime.OrchestrationFailure{
		Code:    "INVALID_ORDER",
		Message: "amount must be positive",
		Meta:    map[string]any{"field": "amount"},
	}
	if !reflect.DeepEqual(d.Error, want) {
		t.Errorf("failure = %+v, want %+v", d.Error, want)
	}
}

func TestHost_RaiseDefaults(t *testing.T) {
	d := mustDecide(t, `raise()`, historytest.New().Log())

	if d.Error == nil || d.Error.Code != string(runtime.ErrorCodeRaise) {
		t.Fatalf("unexpected failure: %+v", d.Error)
	}
}

func TestHost_CustomStatus(t *testing.T) {
	body := `
set_custom_status({"stage": "charging"})
activity.call("Charge", 100)
`
	d := mustDecide(t, body, historytest.New().Log())

	if d.IsDone {
		t.Fatal("expected pass to wait for history")
	}
	if !reflect.DeepEqual(d.CustomStatus, map[string]any{"stage": "charging"}) {
		t.Errorf("custom status = %#v", d.CustomStatus)
	}
}

func TestHost_Globals(t *testing.T) {
	body := `sprintf("%s/%s", input.city, instanceId)`
	log := historytest.New().Started(`{"city":"Tokyo"}`).Log()

	d := mustDecide(t, body, log)

	if d.Output != "Tokyo/instance-1" {
		t.Errorf("output = %#v", d.Output)
	}
}

func TestHost_Nondeterminism(t *testing.T) {
	log := historytest.New().Success("Reserve", `true`).Log()

	_, err := decide(t, greet, log)

	var nd *runtime.NondeterminismError
	if !errors.As(err, &nd) {
		t.Fatalf("expected NondeterminismError, got %v", err)
	}
	if nd.Expected != "Reserve" || nd.Actual != "SayHello" {
		t.Errorf("unexpected error: %+v", nd)
	}
}

func TestHost_ScriptError(t *testing.T) {
	_, err := decide(t, `undefined_function()`, historytest.New().Log())
	if err == nil {
		t.Fatal("expected script error")
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greet.risor")
	if err := os.WriteFile(path, []byte(greet), 0o644); err != nil {
		t.Fatal(err)
	}

	app := runtime.NewApp()
	app.RegisterLoader(dsl.NewLoader())
	if err := app.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	o, err := app.Orchestration("greet")
	if err != nil {
		t.Fatalf("orchestration not registered: %v", err)
	}
	if o.Engine != runtime.EngineRisor || o.Source != path || o.Body != greet {
		t.Errorf("unexpected orchestration: %+v", o)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	if _, err := dsl.NewLoader().Load(filepath.Join(t.TempDir(), "missing.risor")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
