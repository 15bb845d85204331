// Package plugin is the import surface for orchestration components written
// in Go.
//
// Component authors import this package instead of the runtime internals:
//
//	import "github.com/BDNK1/durable/runtime/plugin"
//
// # Component Structure
//
// A component is a struct whose exported methods with the signature
//
//	func (c *Component) Name(exec *plugin.Execution) (any, error)
//
// are registered as orchestrations named "component.name":
//
//	type Orders struct {
//	    Charge plugin.Policy
//	}
//
//	// Orchestration: orders.checkout
//	func (o *Orders) Checkout(exec *plugin.Execution) (any, error) {
//	    reservation, err := exec.CallActivity("Reserve", exec.Input)
//	    if err != nil {
//	        return nil, err
//	    }
//	    exec.SetCustomStatus("charging")
//	    return exec.CallActivityWithRetry("Charge", reservation, o.Charge)
//	}
//
//	app.RegisterComponent("orders", &Orders{Charge: policy})
//
// Errors returned by activity calls must be returned unchanged: they carry
// the pass stop and the orchestration failure to the runner.
//
// # Determinism
//
// Every pass replays the body from the start against the recorded history,
// so the body must issue the same activity calls in the same order each
// time. Read time, randomness and I/O inside activities, never in the body.
//
// # Lifecycle
//
// Components that hold resources may implement Lifecycle. Initialize runs
// at startup in registration order, Shutdown in reverse order.
package plugin
