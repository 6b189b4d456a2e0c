package build

import (
	"fmt"
	"os"
	"runtime/debug"
)

// DEBUG controls whether Critical and Severe panic in addition to logging.
// It is off by default; set TRANSCODER_DEBUG=1 in the environment to turn
// it on for development builds.
var DEBUG = os.Getenv("TRANSCODER_DEBUG") != ""

// Critical should be called if a sanity check has failed, indicating a bug
// in the queue bookkeeping rather than an ordinary operational error (for
// example, the finished counter drifting from COUNT(finished=1)). The call
// stack for the running goroutine is printed to help diagnose the issue.
func Critical(v ...interface{}) {
	s := "Critical error: " + fmt.Sprintln(v...) + "Please file a bug report: https://github.com/seung-lab/tile-transcoder/issues\n"
	debug.PrintStack()
	os.Stderr.WriteString(s)
	if DEBUG {
		panic(s)
	}
}

// Severe prints a message to stderr describing a significant but
// non-fatal problem (disk failure, adapter I/O error). If DEBUG is set,
// Severe panics as well so the condition is impossible to miss in
// development.
func Severe(v ...interface{}) {
	s := "Severe error: " + fmt.Sprintln(v...)
	debug.PrintStack()
	os.Stderr.WriteString(s)
	if DEBUG {
		panic(s)
	}
}
