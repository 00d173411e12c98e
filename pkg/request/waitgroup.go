package request

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"
)

// WaitGroupConcurrencyLimit is the maximum number of concurrent requests in one WaitGroup.
const WaitGroupConcurrencyLimit = 8

// WaitGroup sends requests concurrently, the Wait method blocks until all of
// them are completed. APIRequest.Send uses it to send its wrapped requests.
//
// A request starts immediately after the Send call. An error does not stop
// the sending, the remaining requests are sent too, and Wait at the end
// returns all errors that have occurred, if any.
//
// If you need to schedule requests and send them later,
// or if you want to stop at the first error, use request.RunGroup instead.
type WaitGroup struct {
	ctx context.Context
	wg  sync.WaitGroup
	sem *semaphore.Weighted

	errLock sync.Mutex
	errs    *multierror.Error
}

// NewWaitGroup creates new WaitGroup.
func NewWaitGroup(ctx context.Context) *WaitGroup {
	return NewWaitGroupWithLimit(ctx, WaitGroupConcurrencyLimit)
}

// NewWaitGroupWithLimit creates new WaitGroup with given concurrent requests limit.
func NewWaitGroupWithLimit(ctx context.Context, limit int64) *WaitGroup {
	return &WaitGroup{ctx: ctx, sem: semaphore.NewWeighted(limit)}
}

// Send starts the request in a new goroutine.
func (g *WaitGroup) Send(request Sendable) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			// Ctx is done
			return
		}
		defer g.sem.Release(1)
		if err := request.SendOrErr(g.ctx); err != nil {
			g.addErr(err)
		}
	}()
}

// Wait for all requests to complete. All errors that have occurred will be returned.
func (g *WaitGroup) Wait() error {
	g.wg.Wait()
	// A single error is returned as is, without the multierror wrapper
	if g.errs != nil && len(g.errs.Errors) == 1 {
		return g.errs.Errors[0]
	}
	return g.errs.ErrorOrNil()
}

func (g *WaitGroup) addErr(err error) {
	g.errLock.Lock()
	defer g.errLock.Unlock()
	g.errs = multierror.Append(g.errs, err)
}
