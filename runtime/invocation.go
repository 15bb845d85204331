package runtime

import (
	"fmt"
	"runtime/debug"
)

// Body is the unit of work a host runs for one pass.
type Body func(exec *Execution) (any, error)

type invocation struct {
	exec *Execution
	done chan struct{}

	output any
	err    error
}

// Go runs body on its own goroutine and returns the Invocation tracking it.
// A panic in body becomes the invocation's error.
func Go(exec *Execution, body Body) Invocation {
	inv := &invocation{
		exec: exec,
		done: make(chan struct{}),
	}

	go func() {
		defer close(inv.done)
		defer func() {
			if r := recover(); r != nil {
				inv.output = nil
				inv.err = fmt.Errorf("orchestration %s panicked: %v\n%s", exec.Orchestration.Name, r, debug.Stack())
			}
		}()
		inv.output, inv.err = body(exec)
	}()

	return inv
}

func (i *invocation) Done() <-chan struct{} {
	return i.done
}

func (i *invocation) Result() (any, error) {
	<-i.done
	return i.output, i.err
}

func (i *invocation) Stop() {
	i.exec.cancel()
}

func (i *invocation) Close() {
	<-i.done
	i.exec.release()
}
