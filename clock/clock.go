// Package clock provides the single timestamp primitive the rest of the
// module needs: milliseconds since the Unix epoch, used for lease
// deadlines and the job metadata's created-at column. Ported from
// now_msec() in the original Python implementation's resumable.py.
package clock

import "time"

// NowMillis returns the current time as milliseconds since the Unix epoch.
func NowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}
