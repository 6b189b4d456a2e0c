// Package resin implements the tissue/resin content filter named in
// spec.md §4.3: a pure predicate over a decoded tile plus an action
// selector that the transcoding pipeline consults before writing output.
// The predicate's computer-vision recipe is external and pluggable per
// spec.md §9 ("hard-coded for a specific microscopy dataset... should be
// pluggable"); this package supplies a default tuned for TEM tiles but
// accepts any Detector.
package resin

import "fmt"

// Mode selects how the pipeline reacts to a tile classified as resin
// (no tissue detected), per spec.md §4.3's behavior table.
type Mode int

const (
	// NOOP installs no callback; no tile is filtered, and every tile goes
	// through the normal transcode path.
	NOOP Mode = iota
	// LOG appends resin filenames to the process-local log but still
	// writes every tile.
	LOG
	// MOVE relocates resin sources to {source}/../resin/ and skips the
	// destination write.
	MOVE
	// STAY appends resin filenames to the log and skips the destination
	// write, but leaves the source file in place.
	STAY
)

func (m Mode) String() string {
	switch m {
	case NOOP:
		return "noop"
	case LOG:
		return "log"
	case MOVE:
		return "move"
	case STAY:
		return "stay"
	default:
		return fmt.Sprintf("resin.Mode(%d)", int(m))
	}
}

// ParseMode parses the CLI's --resin flag value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "noop", "":
		return NOOP, nil
	case "log":
		return LOG, nil
	case "move":
		return MOVE, nil
	case "stay":
		return STAY, nil
	default:
		return NOOP, fmt.Errorf("resin: unrecognized mode %q", s)
	}
}
