package codec

import (
	"bytes"
	"image"
	"image/png"
)

func decodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(imageBuffer(data))
	if err != nil {
		return nil, &DecodeError{Format: FormatPNG, Err: err}
	}
	return img, nil
}

// encodePNG always uses the library's maximum compression preset, the
// closest equivalent the standard library exposes to spec.md §4.2's "PNG
// compression level fixed at 8" (the stdlib encoder takes a named
// preset, not a raw zlib level). PNG encoding level is not configurable
// through the job metadata's encoding_level field the way JPEG/JPEG-XL
// are.
func encodePNG(img image.Image) ([]byte, error) {
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, &EncodeError{Format: FormatPNG, Err: err}
	}
	return buf.Bytes(), nil
}
