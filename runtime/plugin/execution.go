package plugin

import "github.com/BDNK1/durable/runtime"

// Execution is the state of one orchestration pass. It implements
// context.Context and is cancelled once the pass stops.
//
//	exec.InstanceID          // orchestration instance
//	exec.Input               // decoded orchestration input
//	exec.CallActivity(...)   // replayed activity call
//	exec.Logger()            // pass logger
type Execution = runtime.Execution

// OrchestrationFunc is an orchestration body.
type OrchestrationFunc = runtime.OrchestrationFunc
