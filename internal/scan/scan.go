// Package scan runs a bounded worker pool over a stream of jobs and stops at
// the first hit.
package scan

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mahdiidarabi/latticevault/internal/logging"
)

// Options tunes a search.
type Options struct {
	// Workers is the pool size; 0 means runtime.NumCPU().
	Workers int

	// Progress is the interval between progress records; 0 disables them.
	Progress time.Duration

	Logger logging.Logger
}

// ErrExhausted is returned by First when every job was tested without a hit.
var ErrExhausted = errors.New("scan: no job produced a hit")

// errHit stops the group once a worker has reported a result.
var errHit = errors.New("scan: hit")

// Stats reports how much work a search did.
type Stats struct {
	Jobs   int64
	Tested int64
}

// First fans jobs out to the pool and returns the first result any worker
// reports. It returns ErrExhausted when the jobs run out without a hit and
// ctx.Err() when ctx is cancelled first.
//
// produce emits jobs until it runs out or emit returns false. test checks one
// job and returns the number of candidates it examined and, on a hit, the
// result with ok set.
func First[J, R any](
	ctx context.Context,
	opts Options,
	produce func(emit func(J) bool),
	test func(ctx context.Context, job J) (result R, tested int64, ok bool),
) (result R, stats Stats, err error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var (
		jobs   atomic.Int64
		tested atomic.Int64
		found  atomic.Bool
		hit    = make(chan R, 1)
		work   = make(chan J, workers*4)
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(work)
		produce(func(j J) bool {
			select {
			case <-gctx.Done():
				return false
			case work <- j:
				jobs.Add(1)
				return true
			}
		})
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case j, more := <-work:
					if !more {
						return nil
					}
					r, n, hitOK := test(gctx, j)
					tested.Add(n)
					if hitOK && found.CompareAndSwap(false, true) {
						hit <- r
						return errHit
					}
				}
			}
		})
	}

	if opts.Progress > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			ticker := time.NewTicker(opts.Progress)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-gctx.Done():
					return
				case <-ticker.C:
					logger.Info(ctx, "scan progress", "jobs", jobs.Load(), "tested", tested.Load())
				}
			}
		}()
	}

	werr := g.Wait()
	stats = Stats{Jobs: jobs.Load(), Tested: tested.Load()}

	switch {
	case errors.Is(werr, errHit):
		return <-hit, stats, nil
	case werr != nil:
		return result, stats, werr
	case ctx.Err() != nil:
		return result, stats, ctx.Err()
	}
	return result, stats, ErrExhausted
}
