package plugin

import "github.com/BDNK1/durable/runtime"

// Lifecycle is implemented by components that hold resources.
//
//	func (c *Ledger) Initialize(ctx context.Context) error {
//	    c.client = newClient(c.Config.Endpoint)
//	    return nil
//	}
//
//	func (c *Ledger) Shutdown(ctx context.Context) error {
//	    return c.client.Close()
//	}
//
// If Initialize returns an error, the application fails to start.
type Lifecycle = runtime.Lifecycle
