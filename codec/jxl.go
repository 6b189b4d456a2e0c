package codec

import (
	"bytes"
	"image"

	"github.com/gen2brain/jpegxl"
)

// jxlDefaultLevel is spec.md §4.2's documented default ("Level defaults:
// ... JPEG-XL 90"). A level of 100 or above selects lossless encoding.
const jxlDefaultLevel = 90

// jxlLosslessThreshold is the level at/above which encodeJXL switches
// from lossy distance-based encoding to lossless, per spec.md §4.2.
const jxlLosslessThreshold = 100

func decodeJXL(data []byte) (image.Image, error) {
	img, err := jpegxl.Decode(imageBuffer(data))
	if err != nil {
		return nil, &DecodeError{Format: FormatJXL, Err: err}
	}
	return img, nil
}

// encodeJXL accepts single-channel uint8 images only; the tiles this
// transcoder handles are grayscale EM micrographs, and spec.md §4.2
// calls for squeezing a trailing axis of size 1 before encode rather
// than supporting multichannel JPEG-XL output.
func encodeJXL(img image.Image, level Level, opts Options) ([]byte, error) {
	channels := ChannelCount(img)
	if channels != 1 {
		return nil, &UnsupportedShapeError{Format: FormatJXL, Channels: channels}
	}

	q := jxlDefaultLevel
	if level != nil {
		q = *level
	}

	encOpts := &jpegxl.Options{
		Quality:  q,
		Lossless: q >= jxlLosslessThreshold,
		Effort:   opts.Effort(),
		Speed:    opts.DecodingSpeed(),
	}

	var buf bytes.Buffer
	if err := jpegxl.Encode(&buf, img, encOpts); err != nil {
		return nil, &EncodeError{Format: FormatJXL, Err: err}
	}
	return buf.Bytes(), nil
}

// RecodeJPEGToJXL repackages a JPEG bitstream inside a JPEG-XL container
// losslessly, without decoding to pixels. spec.md §4.4 names this as the
// fast path taken whenever the source is jpeg, the destination is jxl,
// and the job's encoding_level is unset: the recoded file reconstructs
// the exact original JPEG bytes on the way back out.
func RecodeJPEGToJXL(jpegData []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpegxl.EncodeJPEG(&buf, jpegData); err != nil {
		return nil, &EncodeError{Format: FormatJXL, Err: err}
	}
	return buf.Bytes(), nil
}

// RecodeJXLToJPEG reverses RecodeJPEGToJXL, reconstructing the original
// JPEG bitstream from a losslessly-recoded JPEG-XL file. It is only
// valid for JPEG-XL files produced by RecodeJPEGToJXL (or an equivalent
// lossless JPEG transcode); JPEG-XL files encoded from pixels have no
// original bitstream to reconstruct and will fail here.
func RecodeJXLToJPEG(jxlData []byte) ([]byte, error) {
	data, err := jpegxl.ReconstructJPEG(imageBuffer(jxlData))
	if err != nil {
		return nil, &DecodeError{Format: FormatJXL, Err: err}
	}
	return data, nil
}
