package action

import "sync"

// Collector accumulates the actions of one orchestration pass and is the
// rendezvous between the pass finishing and an external stop.
//
// A single producer calls Add; Stop may be called from any goroutine.
type Collector struct {
	mu      sync.Mutex
	batches [][]Action

	stop     chan struct{}
	stopOnce sync.Once
}

func NewCollector() *Collector {
	return &Collector{
		stop: make(chan struct{}),
	}
}

// Add appends a to the current batch. Adding after Stop still records it.
func (c *Collector) Add(a Action) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.batches) == 0 {
		c.batches = append(c.batches, nil)
	}
	last := len(c.batches) - 1
	c.batches[last] = append(c.batches[last], a)
}

// Stop signals that the pass needs history it does not have yet.
// It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// Stopped is closed once Stop has been called.
func (c *Collector) Stopped() <-chan struct{} {
	return c.stop
}

// IsStopped reports whether Stop has been called.
func (c *Collector) IsStopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// WaitForActions blocks until done is closed or Stop is called and returns
// whether the stop won, together with every batch collected so far.
// A Stop issued before the call always wins.
func (c *Collector) WaitForActions(done <-chan struct{}) (bool, [][]Action) {
	if c.IsStopped() {
		return true, c.Batches()
	}

	select {
	case <-c.stop:
		return true, c.Batches()
	case <-done:
		return false, c.Batches()
	}
}

// Batches returns a copy of the collected batches.
func (c *Collector) Batches() [][]Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]Action, len(c.batches))
	for i, batch := range c.batches {
		out[i] = append([]Action(nil), batch...)
	}
	return out
}
