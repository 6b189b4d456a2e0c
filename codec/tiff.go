package codec

import (
	"bytes"
	"image"

	"golang.org/x/image/tiff"
)

func decodeTIFF(data []byte) (image.Image, error) {
	img, err := tiff.Decode(imageBuffer(data))
	if err != nil {
		return nil, &DecodeError{Format: FormatTIFF, Err: err}
	}
	return img, nil
}

// encodeTIFF uses deflate compression; spec.md §4.4 step 4 names bmp and
// tiff as the two formats that tolerate an additional destination-side
// bitstream recompression pass, implying their own internal compression
// is otherwise minimal.
func encodeTIFF(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	opts := &tiff.Options{Compression: tiff.Deflate}
	if err := tiff.Encode(&buf, img, opts); err != nil {
		return nil, &EncodeError{Format: FormatTIFF, Err: err}
	}
	return buf.Bytes(), nil
}
