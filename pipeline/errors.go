package pipeline

import "github.com/seung-lab/tile-transcoder/codec"

// withFilename fills in the Filename field of codec's typed errors so
// callers up the stack (the queue's error log, worker logging) see
// which item failed, per spec.md §4.2's "typed errors carrying the
// filename" requirement. codec.Decode/Encode don't know the original
// filename, only the format, so the pipeline attaches it here.
func withFilename(err error, filename string) error {
	switch e := err.(type) {
	case *codec.DecodeError:
		e.Filename = filename
		return e
	case *codec.EncodeError:
		e.Filename = filename
		return e
	case *codec.EmptyInputError:
		e.Filename = filename
		return e
	default:
		return err
	}
}
