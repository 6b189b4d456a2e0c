package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seung-lab/tile-transcoder/queue"
)

var releaseCmd = &cobra.Command{
	Use:   "release <db>",
	Short: "Clear all leases",
	Long:  "Clear every item's lease so the next worker run can reserve it immediately, for recovering a queue stuck behind crashed workers.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRelease(args[0]); err != nil {
			die(err)
		}
	},
}

func runRelease(dbPath string) error {
	q, err := queue.Open(dbPath, 0)
	if err != nil {
		return fmt.Errorf("opening queue database: %w", err)
	}
	defer q.Close()

	if err := q.Release(context.Background()); err != nil {
		return fmt.Errorf("releasing leases: %w", err)
	}
	fmt.Println("leases released")
	return nil
}
