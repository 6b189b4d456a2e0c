package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seung-lab/tile-transcoder/blob"
	"github.com/seung-lab/tile-transcoder/codec"
	"github.com/seung-lab/tile-transcoder/persist"
	"github.com/seung-lab/tile-transcoder/queue"
	"github.com/seung-lab/tile-transcoder/resin"
	"github.com/seung-lab/tile-transcoder/worker"
)

var workerFlags struct {
	parallel     int
	blockSize    int
	leaseMsec    int64
	dbTimeoutSec int
	rampSec      float64
	codecThreads int
	verbose      bool
	progress     bool
	cleanup      bool
}

var workerCmd = &cobra.Command{
	Use:   "worker <db>",
	Short: "Run transcode workers against a queue database",
	Long:  "Reserve batches from the queue and transcode them until the queue is drained.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWorker(args[0]); err != nil {
			die(err)
		}
	},
}

func registerWorkerFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&workerFlags.parallel, "parallel", "p", 1, "number of concurrent workers")
	cmd.Flags().IntVarP(&workerFlags.blockSize, "block-size", "b", 200, "items reserved per batch")
	cmd.Flags().Int64Var(&workerFlags.leaseMsec, "lease-msec", 0, "reservation lease duration in milliseconds")
	cmd.Flags().IntVar(&workerFlags.dbTimeoutSec, "db-timeout", 5, "database busy timeout in seconds")
	cmd.Flags().Float64Var(&workerFlags.rampSec, "ramp-sec", 0.25, "jitter window, in seconds, over which parallel workers stagger startup")
	cmd.Flags().IntVar(&workerFlags.codecThreads, "codec-threads", 0, "codec thread count, 0 means codec-default")
	cmd.Flags().BoolVar(&workerFlags.verbose, "verbose", false, "log every transcoded and skipped item, and periodic progress, to the worker log")
	cmd.Flags().BoolVar(&workerFlags.progress, "progress", false, "print periodic progress to stderr")
	cmd.Flags().BoolVar(&workerFlags.cleanup, "cleanup", false, "delete the queue database on clean completion")
}

func validateWorkerFlags() error {
	if workerFlags.parallel < 1 {
		return fmt.Errorf("--parallel must be >= 1")
	}
	if workerFlags.blockSize < 1 {
		return fmt.Errorf("-b/--block-size must be >= 1")
	}
	if workerFlags.leaseMsec < 0 {
		return fmt.Errorf("--lease-msec must be >= 0")
	}
	if workerFlags.codecThreads < 0 {
		return fmt.Errorf("--codec-threads must be >= 0")
	}
	return nil
}

func runWorker(dbPath string) error {
	if err := validateWorkerFlags(); err != nil {
		return err
	}

	q, err := queue.Open(dbPath, workerFlags.leaseMsec)
	if err != nil {
		return fmt.Errorf("opening queue database: %w", err)
	}
	closeQueue := true
	defer func() {
		if closeQueue {
			q.Close()
		}
	}()

	ctx := context.Background()
	if err := q.SetBusyTimeout(ctx, workerFlags.dbTimeoutSec); err != nil {
		return fmt.Errorf("setting db timeout: %w", err)
	}

	meta, err := q.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("reading job metadata: %w", err)
	}

	source, err := blob.NewAdapter(meta.Source)
	if err != nil {
		return fmt.Errorf("resolving source adapter: %w", err)
	}
	dest, err := blob.NewAdapter(meta.Dest)
	if err != nil {
		return fmt.Errorf("resolving destination adapter: %w", err)
	}

	var detector resin.Callback
	var policy *resin.Policy
	if meta.ResinHandling != resin.NOOP {
		policy, err = resin.NewPolicy(meta.ResinHandling, meta.Source, nil, workerFlags.verbose)
		if err != nil {
			return fmt.Errorf("initializing resin policy: %w", err)
		}
		defer policy.Close()
		detector = policy.Callback()
	}

	opts := codec.Options(meta.EncodingOpts)
	opts["num_threads"] = workerFlags.codecThreads

	logger, err := persist.NewLogger("transcoder.worker.log")
	if err != nil {
		return fmt.Errorf("opening worker log: %w", err)
	}
	logger.SetVerbose(workerFlags.verbose)
	defer logger.Close()

	executor := &worker.Executor{
		Queue:          q,
		Source:         source,
		Dest:           dest,
		Target:         codec.Format(meta.Reencode),
		Level:          meta.EncodingLevel,
		Options:        opts,
		Recompress:     meta.Recompress,
		DeleteOriginal: meta.DeleteOriginal,
		Detector:       detector,
		Logger:         logger,
		Verbose:        workerFlags.verbose,
	}

	driver, err := worker.NewDriver(executor, workerFlags.parallel, workerFlags.blockSize, workerFlags.leaseMsec)
	if err != nil {
		return err
	}
	driver.RampMsec = int(workerFlags.rampSec * 1000)

	if workerFlags.progress {
		stop := make(chan struct{})
		defer close(stop)
		go reportProgress(ctx, q, stop)
	}

	if err := driver.Run(ctx); err != nil {
		return fmt.Errorf("worker run failed: %w", err)
	}

	if workerFlags.cleanup {
		remaining, err := q.Remaining(ctx)
		if err == nil && remaining == 0 {
			hasErrors, _ := q.HasErrors(ctx)
			if !hasErrors {
				q.Close()
				closeQueue = false
				if err := os.Remove(dbPath); err != nil {
					return fmt.Errorf("removing queue database during cleanup: %w", err)
				}
			}
		}
	}

	return nil
}

func reportProgress(ctx context.Context, q *queue.Queue, stop <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			remaining, err := q.Remaining(ctx)
			if err != nil {
				continue
			}
			leased, err := q.NumLeased(ctx)
			if err != nil {
				continue
			}
			fmt.Fprintf(os.Stderr, "remaining=%d leased=%d\n", remaining, leased)
		case <-stop:
			return
		}
	}
}
