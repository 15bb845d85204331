package runtime

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/BDNK1/durable/runtime/action"
	"github.com/BDNK1/durable/runtime/retry"
)

func TestDecision_JSON(t *testing.T) {
	policy, err := retry.NewPolicy(time.Second, 2)
	if err != nil {
		t.Fatal(err)
	}
	d := &Decision{
		IsDone: false,
		Actions: [][]action.Action{{
			action.CallActivity{FunctionName: "Reserve", Input: "book"},
			action.CallActivityWithRetry{FunctionName: "Charge", Input: 10.0, RetryOptions: policy},
		}},
		CustomStatus: "charging",
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatal(err)
	}
	if _, ok := wire["error"]; ok {
		t.Errorf("error should be omitted when nil: %s", data)
	}
	if wire["isDone"] != false || wire["customStatus"] != "charging" {
		t.Errorf("unexpected wire form: %s", data)
	}

	var back Decision
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Actions, d.Actions) {
		t.Errorf("actions = %#v, want %#v", back.Actions, d.Actions)
	}
	if back.ActionCount() != 2 {
		t.Errorf("ActionCount() = %d", back.ActionCount())
	}
}

func TestDecision_JSONWithFailure(t *testing.T) {
	d := &Decision{
		IsDone:  true,
		Actions: [][]action.Action{},
		Error:   ActivityFailure("Charge", "declined", "card 4242", 3),
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back Decision
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.IsDone || !reflect.DeepEqual(back.Error, d.Error) {
		t.Errorf("decoded %+v, want %+v", back, d)
	}
}

func TestDecision_UnmarshalBadAction(t *testing.T) {
	var d Decision
	if err := json.Unmarshal([]byte(`{"isDone":false,"actions":[[{"actionType":5}]]}`), &d); err == nil {
		t.Fatal("expected error for unknown action type")
	}
}
