// Package pipeline implements the per-item transcoding state machine
// named in spec.md §4.2:
//
//	PENDING -> DECODED -> (FILTERED? skip/move/continue) -> ENCODED -> WRITTEN
//
// Transcode is pure with respect to storage: it never touches disk or a
// blob.Adapter itself, returning bytes for the caller (the worker
// package) to write and, on the SKIP action, to leave untouched.
package pipeline

import (
	"context"
	"errors"
	"image"

	"github.com/seung-lab/tile-transcoder/codec"
	"github.com/seung-lab/tile-transcoder/resin"
)

// Action reports what the caller should do with a Transcode result.
type Action int

const (
	// ActionWrite means outFilename/outBytes should be written to the
	// destination namespace.
	ActionWrite Action = iota
	// ActionSkip means the item produced no destination write — the
	// detector callback classified it as resin and, per its mode,
	// already performed any side effect (move) itself.
	ActionSkip
)

func (a Action) String() string {
	if a == ActionSkip {
		return "skip"
	}
	return "write"
}

// Transcode implements spec.md §4.2's per-item contract. detector may be
// nil (equivalent to resin.NOOP: no forced decode, no filtering).
func Transcode(
	ctx context.Context,
	filename string,
	data []byte,
	target codec.Format,
	level codec.Level,
	opts codec.Options,
	detector resin.Callback,
) (outFilename string, outBytes []byte, action Action, err error) {
	if len(data) == 0 {
		return "", nil, ActionWrite, &codec.EmptyInputError{Filename: filename}
	}

	basename, srcFormat, err := codec.SplitName(filename)
	if err != nil {
		return "", nil, ActionWrite, err
	}

	var img image.Image
	decoded := false

	if detector != nil {
		img, err = codec.Decode(data, srcFormat)
		if err != nil {
			return "", nil, ActionWrite, withFilename(err, filename)
		}
		decoded = true

		if err := detector(ctx, filename, img); err != nil {
			if errors.Is(err, resin.ErrSkipTranscoding) {
				return "", nil, ActionSkip, nil
			}
			return "", nil, ActionWrite, err
		}
	}

	if target == srcFormat && !decoded {
		return filename, data, ActionWrite, nil
	}

	if !decoded && level == nil && isJPEGXLFastPath(srcFormat, target) {
		out, err := recodeFastPath(srcFormat, target, data)
		if err != nil {
			return "", nil, ActionWrite, withFilename(err, filename)
		}
		return basename + target.Ext(), out, ActionWrite, nil
	}

	if !decoded {
		img, err = codec.Decode(data, srcFormat)
		if err != nil {
			return "", nil, ActionWrite, withFilename(err, filename)
		}
	}

	ext, out, err := codec.Encode(img, target, level, opts)
	if err != nil {
		return "", nil, ActionWrite, withFilename(err, filename)
	}
	return basename + ext, out, ActionWrite, nil
}

func isJPEGXLFastPath(src, target codec.Format) bool {
	return (src == codec.FormatJPEG && target == codec.FormatJXL) ||
		(src == codec.FormatJXL && target == codec.FormatJPEG)
}

func recodeFastPath(src, target codec.Format, data []byte) ([]byte, error) {
	if src == codec.FormatJPEG && target == codec.FormatJXL {
		return codec.RecodeJPEGToJXL(data)
	}
	return codec.RecodeJXLToJPEG(data)
}
