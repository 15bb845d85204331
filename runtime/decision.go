package runtime

import (
	"encoding/json"
	"fmt"

	"github.com/BDNK1/durable/runtime/action"
)

// Decision is the answer to one orchestration request. It is created per
// pass, handed to the transport and never persisted.
type Decision struct {
	// IsDone is false when the pass stopped to wait for new history.
	IsDone bool `json:"isDone"`

	// Actions holds every action requested by the pass, in batches.
	Actions [][]action.Action `json:"actions"`

	Output       any                   `json:"output"`
	Error        *OrchestrationFailure `json:"error,omitempty"`
	CustomStatus any                   `json:"customStatus,omitempty"`
}

// ActionCount returns the number of actions across all batches.
func (d *Decision) ActionCount() int {
	n := 0
	for _, batch := range d.Actions {
		n += len(batch)
	}
	return n
}

func (d *Decision) UnmarshalJSON(data []byte) error {
	var raw struct {
		IsDone       bool                  `json:"isDone"`
		Actions      [][]json.RawMessage   `json:"actions"`
		Output       any                   `json:"output"`
		Error        *OrchestrationFailure `json:"error"`
		CustomStatus any                   `json:"customStatus"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.IsDone = raw.IsDone
	d.Output = raw.Output
	d.Error = raw.Error
	d.CustomStatus = raw.CustomStatus
	d.Actions = make([][]action.Action, len(raw.Actions))
	for i, batch := range raw.Actions {
		d.Actions[i] = make([]action.Action, len(batch))
		for j, item := range batch {
			a, err := action.Unmarshal(item)
			if err != nil {
				return fmt.Errorf("decision action %d.%d: %w", i, j, err)
			}
			d.Actions[i][j] = a
		}
	}
	return nil
}
