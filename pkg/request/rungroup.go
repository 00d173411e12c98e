package request

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RunGroupConcurrencyLimit is the maximum number of concurrent requests in one RunGroup.
const RunGroupConcurrencyLimit = 32

// RunGroup schedules requests by the Add method and then sends them
// concurrently by the RunAndWait method. A request callback may Add further
// requests while the group is running, which makes the group suitable for
// walks over linked resources, see for example the category tree walk.
//
// The sending stops when the first error occurs and RunAndWait returns it.
//
// If you need to send requests immediately,
// or if you want to wait and collect all errors, use request.WaitGroup instead.
type RunGroup struct {
	ctx     context.Context
	sender  Sender
	started chan struct{}
	group   *errgroup.Group
	sem     *semaphore.Weighted
}

// NewRunGroup creates a new RunGroup.
func NewRunGroup(ctx context.Context, sender Sender) *RunGroup {
	return RunGroupWithLimit(ctx, sender, RunGroupConcurrencyLimit)
}

// RunGroupWithLimit creates a new RunGroup with given concurrent requests limit.
func RunGroupWithLimit(ctx context.Context, sender Sender, limit int64) *RunGroup {
	group, ctx := errgroup.WithContext(ctx)
	return &RunGroup{
		ctx:     ctx,
		sender:  sender,
		started: make(chan struct{}),
		group:   group,
		sem:     semaphore.NewWeighted(limit),
	}
}

// Sender returns the sender used by the group.
func (g *RunGroup) Sender() Sender {
	return g.sender
}

// Add schedules the request. It will be sent by the RunAndWait method.
// Requests can be added even after RunAndWait has been called,
// as long as it has not finished yet, typically from a callback of another request.
func (g *RunGroup) Add(request Sendable) {
	g.group.Go(func() error {
		return g.send(request)
	})
}

// RunAndWait starts sending the scheduled requests and waits for them.
// It stops at the first error and returns it.
func (g *RunGroup) RunAndWait() error {
	close(g.started)
	return g.group.Wait()
}

func (g *RunGroup) send(request Sendable) error {
	// Sending is postponed until the RunAndWait call
	<-g.started

	if err := g.sem.Acquire(g.ctx, 1); err != nil {
		// Ctx is done
		return err
	}
	defer g.sem.Release(1)

	return request.SendOrErr(g.ctx)
}
