// Command transcoder implements the job control surface of spec.md §4.5,
// §6: init/worker/status/release subcommands over a single embedded
// queue database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seung-lab/tile-transcoder/build"
)

// Exit codes, inspired by sysexits.h the way cmd/siac's comment names it.
const (
	exitCodeGeneral = 1  // fatal queue/adapter error
	exitCodeUsage   = 64 // EX_USAGE in sysexits.h
)

// die prints its arguments to stderr and exits with the general error
// code, the cmd/siac idiom for a handler that can't recover.
func die(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(exitCodeGeneral)
}

func main() {
	root := &cobra.Command{
		Use:   "transcoder",
		Short: "Resumable, lease-based tile transcoding queue, v" + build.Version,
		Long:  "Resumable, lease-based tile transcoding queue, v" + build.Version,
	}

	root.AddCommand(initCmd)
	root.AddCommand(workerCmd)
	root.AddCommand(statusCmd)
	root.AddCommand(releaseCmd)

	registerInitFlags(initCmd)
	registerWorkerFlags(workerCmd)
	registerStatusFlags(statusCmd)

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeUsage)
	}
}
