package runtime

// OrchestrationFunc is an orchestration body written in Go.
//
// Activity calls go through exec:
//
//	func Greet(exec *runtime.Execution) (any, error) {
//	    a, err := exec.CallActivity("SayHello", "Tokyo")
//	    if err != nil {
//	        return nil, err
//	    }
//	    b, err := exec.CallActivity("SayHello", "Seattle")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return []any{a, b}, nil
//	}
//
// The body must be deterministic: every replay issues the same calls in the
// same order. Errors from activity calls must be returned unchanged.
type OrchestrationFunc func(exec *Execution) (any, error)

// FuncHost runs orchestrations registered as Go functions.
type FuncHost struct{}

func NewFuncHost() *FuncHost {
	return &FuncHost{}
}

func (h *FuncHost) Start(exec *Execution) Invocation {
	fn := exec.Orchestration.Func
	return Go(exec, func(exec *Execution) (any, error) {
		return fn(exec)
	})
}
