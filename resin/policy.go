package resin

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"gitlab.com/NebulousLabs/errors"

	"github.com/seung-lab/tile-transcoder/blob"
)

// ErrSkipTranscoding is the internal "non-error way for a detector
// callback to abort the write cleanly" named in spec.md §4.2. The
// pipeline treats it as a SKIP action, not a failure.
var ErrSkipTranscoding = errors.New("resin: skip transcoding")

// Callback is the pipeline's detector hook: given a filename and its
// decoded image, it either returns nil (keep, continue the normal
// transcode path) or ErrSkipTranscoding (drop the destination write).
// Any other error aborts the item as a failure.
type Callback func(ctx context.Context, name string, img image.Image) error

// Policy builds the Callback for a Mode, matching spec.md §4.3's
// behavior table. NOOP returns a nil Callback (no detector decode is
// forced); the other three modes always return a non-nil Callback.
type Policy struct {
	Mode     Mode
	Detector Detector
	Verbose  bool

	// source is the namespace the tiles originate from; MOVE relocates
	// resin tiles to a sibling "resin" directory next to it.
	source string

	log *resinLog
}

// NewPolicy constructs a Policy for mode against sourceURI, opening the
// process-local resin log file (spec.md §4.3: "LOG and STAY open a
// process-local log file ... in the working directory") when the mode
// requires one. detector may be nil to select DefaultDetector.
func NewPolicy(mode Mode, sourceURI string, detector Detector, verbose bool) (*Policy, error) {
	if detector == nil {
		detector = DefaultDetector
	}
	p := &Policy{
		Mode:     mode,
		Detector: detector,
		Verbose:  verbose,
		source:   sourceURI,
	}
	switch mode {
	case LOG, STAY:
		l, err := newResinLog(sourceURI)
		if err != nil {
			return nil, errors.Extend(err, "resin: opening log file")
		}
		p.log = l
	}
	return p, nil
}

// Close releases the policy's log file, if one was opened.
func (p *Policy) Close() error {
	if p.log == nil {
		return nil
	}
	return p.log.Close()
}

// Callback returns the detector hook to pass into the pipeline, or nil
// for NOOP.
func (p *Policy) Callback() Callback {
	switch p.Mode {
	case NOOP:
		return nil
	case LOG:
		return p.logCallback
	case STAY:
		return p.stayCallback
	case MOVE:
		return p.moveCallback
	default:
		return nil
	}
}

func (p *Policy) logCallback(ctx context.Context, name string, img image.Image) error {
	if p.Detector(img) {
		return nil
	}
	p.log.Println(name)
	if p.Verbose {
		fmt.Printf("no tissue detected in %s\n", name)
	}
	return nil
}

func (p *Policy) stayCallback(ctx context.Context, name string, img image.Image) error {
	if p.Detector(img) {
		return nil
	}
	p.log.Println(name)
	if p.Verbose {
		fmt.Printf("no tissue detected in %s, staying\n", name)
	}
	return ErrSkipTranscoding
}

func (p *Policy) moveCallback(ctx context.Context, name string, img image.Image) error {
	if p.Detector(img) {
		return nil
	}
	if p.Verbose {
		fmt.Printf("no tissue detected, moving %s\n", name)
	}

	dest, err := siblingAdapter(p.source, "resin")
	if err != nil {
		return errors.Extend(err, "resin: resolving move destination")
	}
	src, err := blob.NewAdapter(p.source)
	if err != nil {
		return errors.Extend(err, "resin: resolving source adapter")
	}

	body, err := src.Get(ctx, []string{name})
	if err != nil {
		return errors.Extend(err, "resin: fetching for move")
	}
	data, ok := body[name]
	if !ok {
		return fmt.Errorf("resin: %s missing during move", name)
	}
	if err := dest.Put(ctx, []blob.Object{{Path: name, Content: data}}); err != nil {
		return errors.Extend(err, "resin: writing moved tile")
	}
	if err := src.Delete(ctx, []string{name}); err != nil {
		return errors.Extend(err, "resin: removing moved source")
	}
	return ErrSkipTranscoding
}

// siblingAdapter resolves a directory named dirname next to root's path,
// the way spec.md §4.3 describes resin's move target:
// "{source}/../resin/". Only the file:// scheme is supported, matching
// blob.NewAdapter's current single backend.
func siblingAdapter(rootURI, dirname string) (blob.Adapter, error) {
	if !strings.HasPrefix(rootURI, "file://") {
		return nil, fmt.Errorf("resin: move destination requires a file:// source, got %s", rootURI)
	}
	root := strings.TrimPrefix(rootURI, "file://")
	sibling := filepath.Join(filepath.Dir(filepath.Clean(root)), dirname)
	return blob.NewAdapter("file://" + sibling)
}
