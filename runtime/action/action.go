package action

import (
	"encoding/json"
	"fmt"

	"github.com/BDNK1/durable/runtime/retry"
)

// Type is the wire discriminator the host uses to dispatch an action.
type Type int

const (
	TypeCallActivity          Type = 0
	TypeCallActivityWithRetry Type = 1
)

func (t Type) String() string {
	switch t {
	case TypeCallActivity:
		return "CallActivity"
	case TypeCallActivityWithRetry:
		return "CallActivityWithRetry"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Action is a request emitted by an orchestration pass for the host to carry out.
type Action interface {
	Type() Type
	Function() string
}

// CallActivity asks the host to invoke an activity function once.
type CallActivity struct {
	FunctionName string
	Input        any
}

func (a CallActivity) Type() Type       { return TypeCallActivity }
func (a CallActivity) Function() string { return a.FunctionName }

func (a CallActivity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionType   Type   `json:"actionType"`
		FunctionName string `json:"functionName"`
		Input        any    `json:"input"`
	}{a.Type(), a.FunctionName, a.Input})
}

// CallActivityWithRetry asks the host to invoke an activity function and to
// schedule retries according to RetryOptions.
type CallActivityWithRetry struct {
	FunctionName string
	Input        any
	RetryOptions retry.Policy
}

func (a CallActivityWithRetry) Type() Type       { return TypeCallActivityWithRetry }
func (a CallActivityWithRetry) Function() string { return a.FunctionName }

func (a CallActivityWithRetry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionType   Type         `json:"actionType"`
		FunctionName string       `json:"functionName"`
		Input        any          `json:"input"`
		RetryOptions retry.Policy `json:"retryOptions"`
	}{a.Type(), a.FunctionName, a.Input, a.RetryOptions})
}

// Unmarshal decodes one action from its wire form.
func Unmarshal(data []byte) (Action, error) {
	var raw struct {
		ActionType   *Type           `json:"actionType"`
		FunctionName string          `json:"functionName"`
		Input        any             `json:"input"`
		RetryOptions json.RawMessage `json:"retryOptions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.ActionType == nil {
		return nil, fmt.Errorf("action has no actionType")
	}

	switch *raw.ActionType {
	case TypeCallActivity:
		return CallActivity{FunctionName: raw.FunctionName, Input: raw.Input}, nil
	case TypeCallActivityWithRetry:
		var policy retry.Policy
		if len(raw.RetryOptions) == 0 {
			return nil, fmt.Errorf("%s action has no retryOptions", TypeCallActivityWithRetry)
		}
		if err := json.Unmarshal(raw.RetryOptions, &policy); err != nil {
			return nil, fmt.Errorf("invalid retryOptions: %w", err)
		}
		return CallActivityWithRetry{FunctionName: raw.FunctionName, Input: raw.Input, RetryOptions: policy}, nil
	default:
		return nil, fmt.Errorf("unknown actionType %d", int(*raw.ActionType))
	}
}
