package worker

import (
	"context"
	"sync"
	"time"

	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/fastrand"
	"gitlab.com/NebulousLabs/threadgroup"
)

// defaultRampMsec is the jitter window new parallel workers stagger
// their startup across, per spec.md §4.4's "ramp up new workers over a
// short jitter window so they don't all hit the database in the same
// instant" note. 250ms matches the CLI's --ramp-sec default of 0.25s.
const defaultRampMsec = 250

// ErrParallelNeedsLease is returned by NewDriver when Parallel > 1 is
// requested with LeaseMsec == 0. A zero lease stamps reserved items with
// the reservation millisecond itself, so they become reservable again
// almost at once: fine for one worker, but parallel goroutines would
// reserve and process the same items concurrently.
var ErrParallelNeedsLease = errors.New("worker: parallel > 1 requires a nonzero lease")

// Driver runs an Executor either serially or as a fixed pool of
// goroutines sharing the Executor's single-connection Queue, per
// spec.md §9's redesign note that Go's reentrant codecs make goroutines
// the natural replacement for the original implementation's worker
// processes.
type Driver struct {
	Executor  *Executor
	Parallel  int
	BatchSize int
	RampMsec  int

	tg threadgroup.ThreadGroup
}

// NewDriver validates parallel/lease compatibility and returns a Driver
// ready to Run.
func NewDriver(executor *Executor, parallel, batchSize int, leaseMsec int64) (*Driver, error) {
	if parallel < 1 {
		parallel = 1
	}
	if parallel > 1 && leaseMsec == 0 {
		return nil, ErrParallelNeedsLease
	}
	return &Driver{
		Executor:  executor,
		Parallel:  parallel,
		BatchSize: batchSize,
		RampMsec:  defaultRampMsec,
	}, nil
}

// Run drives the executor to exhaustion, serially if Parallel == 1 or
// across Parallel goroutines otherwise, and stops early if ctx is
// canceled. It also starts a background progress poller that logs
// queue status roughly every 500ms while work is in flight.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.tg.Add(); err != nil {
		return errors.Extend(err, "starting driver thread group")
	}
	defer d.tg.Done()

	stop := make(chan struct{})
	go d.pollProgress(ctx, stop)
	defer close(stop)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			d.tg.Stop()
		case <-done:
		}
	}()
	defer close(done)

	if d.Parallel <= 1 {
		return d.runSerial(ctx)
	}
	return d.runParallel(ctx)
}

func (d *Driver) runSerial(ctx context.Context) error {
	return d.Executor.Queue.ReserveAll(ctx, d.BatchSize, func(batch []string) error {
		select {
		case <-d.tg.StopChan():
			return threadgroup.ErrStopped
		default:
		}
		_, err := d.Executor.RunBatch(ctx, batch)
		return err
	})
}

// runParallel fans ReserveAll's batch callback out across Parallel
// goroutines. Reservation itself still serializes through the Queue's
// single pinned connection (queue.Queue.Reserve's exclusive
// transaction); what runs concurrently is each batch's fetch/transcode/
// write/delete work, which is where the real I/O and CPU cost lives.
func (d *Driver) runParallel(ctx context.Context) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for i := 0; i < d.Parallel; i++ {
		if err := d.tg.Add(); err != nil {
			break
		}
		wg.Add(1)
		ramp := time.Duration(fastrand.Intn(d.rampMsec())) * time.Millisecond
		go func(ramp time.Duration) {
			defer wg.Done()
			defer d.tg.Done()

			select {
			case <-time.After(ramp):
			case <-d.tg.StopChan():
				return
			}

			err := d.Executor.Queue.ReserveAll(ctx, d.BatchSize, func(batch []string) error {
				select {
				case <-d.tg.StopChan():
					return threadgroup.ErrStopped
				default:
				}
				_, err := d.Executor.RunBatch(ctx, batch)
				return err
			})
			if err != nil && err != threadgroup.ErrStopped {
				record(err)
			}
		}(ramp)
	}

	wg.Wait()
	return firstErr
}

func (d *Driver) rampMsec() int {
	if d.RampMsec <= 0 {
		return 1
	}
	return d.RampMsec
}

func (d *Driver) pollProgress(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.logProgress(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (d *Driver) logProgress(ctx context.Context) {
	if d.Executor.Logger == nil {
		return
	}
	remaining, err := d.Executor.Queue.Remaining(ctx)
	if err != nil {
		return
	}
	leased, err := d.Executor.Queue.NumLeased(ctx)
	if err != nil {
		return
	}
	d.Executor.Logger.Verbosef("progress: remaining=%d leased=%d", remaining, leased)
}
