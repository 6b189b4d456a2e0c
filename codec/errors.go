package codec

import "fmt"

// UnsupportedFormatError is returned when a filename's suffix doesn't
// match any of the formats in the canonical set.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("codec: unsupported format %q", e.Format)
}

// UnsupportedShapeError is returned when an image's channel count can't
// be represented by the target format — JPEG-XL encoding here requires a
// single-channel uint8 image (spec.md §4.2), and JPEG requires 1 or 3
// channels.
type UnsupportedShapeError struct {
	Format   Format
	Channels int
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("codec: %s does not support %d-channel images", e.Format, e.Channels)
}

// EmptyInputError is returned when Decode or a fast-path recode is given
// zero-length input.
type EmptyInputError struct {
	Filename string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("codec: empty input for %s", e.Filename)
}

// DecodeError wraps an underlying decode failure with the filename it was
// attempting to decode, per spec.md §4.2's "typed errors carrying the
// filename" requirement.
type DecodeError struct {
	Filename string
	Format   Format
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: decoding %s as %s: %v", e.Filename, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError wraps an underlying encode failure with the filename it was
// producing output for.
type EncodeError struct {
	Filename string
	Format   Format
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("codec: encoding %s as %s: %v", e.Filename, e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
