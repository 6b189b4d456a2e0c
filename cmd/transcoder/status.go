package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seung-lab/tile-transcoder/queue"
)

var statusFlags struct {
	etaSec    float64
	rawCounts bool
}

var statusCmd = &cobra.Command{
	Use:   "status <db>",
	Short: "Report queue progress",
	Long:  "Report total, finished, leased, and errored counts, optionally sampling throughput over an interval to estimate time remaining.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStatus(args[0]); err != nil {
			die(err)
		}
	},
}

func registerStatusFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&statusFlags.etaSec, "eta", 0, "seconds to sample throughput over before reporting an ETA")
	cmd.Flags().BoolVar(&statusFlags.rawCounts, "raw-counts", false, "print raw counts instead of percentages")
}

func runStatus(dbPath string) error {
	q, err := queue.Open(dbPath, 0)
	if err != nil {
		return fmt.Errorf("opening queue database: %w", err)
	}
	defer q.Close()

	ctx := context.Background()
	snap, err := readSnapshot(ctx, q)
	if err != nil {
		return err
	}
	printSnapshot(snap)

	if statusFlags.etaSec <= 0 {
		return nil
	}

	time.Sleep(time.Duration(statusFlags.etaSec * float64(time.Second)))

	after, err := readSnapshot(ctx, q)
	if err != nil {
		return err
	}

	done := after.finished - snap.finished
	rate := float64(done) / statusFlags.etaSec
	fmt.Printf("throughput: %.2f items/sec\n", rate)
	if rate > 0 && after.remaining > 0 {
		etaSeconds := float64(after.remaining) / rate
		fmt.Printf("eta: %.0f sec\n", etaSeconds)
	}
	printSnapshot(after)
	return nil
}

type snapshot struct {
	total     int64
	finished  int64
	leased    int64
	errors    int64
	remaining int64
}

func readSnapshot(ctx context.Context, q *queue.Queue) (snapshot, error) {
	total, err := q.Total(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("reading total: %w", err)
	}
	finished, err := q.Finished(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("reading finished: %w", err)
	}
	leased, err := q.NumLeased(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("reading leased: %w", err)
	}
	numErrors, err := q.NumErrors(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("reading errors: %w", err)
	}
	remaining, err := q.Remaining(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("reading remaining: %w", err)
	}
	return snapshot{total: total, finished: finished, leased: leased, errors: numErrors, remaining: remaining}, nil
}

func printSnapshot(s snapshot) {
	if statusFlags.rawCounts || s.total == 0 {
		fmt.Printf("total=%d finished=%d leased=%d errors=%d remaining=%d\n",
			s.total, s.finished, s.leased, s.errors, s.remaining)
		return
	}
	fmt.Printf("total=%d finished=%.1f%% leased=%d errors=%d remaining=%.1f%%\n",
		s.total,
		100*float64(s.finished)/float64(s.total),
		s.leased,
		s.errors,
		100*float64(s.remaining)/float64(s.total),
	)
}
