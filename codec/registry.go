package codec

import (
	"bytes"
	"image"
)

// ChannelCount derives the pixel channel count from a decoded image's
// color model, before any encoder branches on it. spec.md §9 flags the
// original implementation's bug where encode_jpeg and encode_jpegxl read
// num_channel before it was assigned; deriving it here, once, up front,
// is the fix.
func ChannelCount(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.YCbCr, *image.NYCbCrA:
		return 3
	default:
		// NRGBA/RGBA/NRGBA64/RGBA64/Paletted and anything else stdlib or
		// x/image might hand back is conservatively treated as 4-channel;
		// the concrete encoders below further restrict what they accept.
		return 4
	}
}

// Decode dispatches to the concrete decoder for format. Zero-length input
// is rejected up front per spec.md §4.2's "zero-length input" edge case.
func Decode(data []byte, format Format) (image.Image, error) {
	if len(data) == 0 {
		return nil, &EmptyInputError{}
	}
	switch format {
	case FormatPNG:
		return decodePNG(data)
	case FormatBMP:
		return decodeBMP(data)
	case FormatTIFF:
		return decodeTIFF(data)
	case FormatJPEG:
		return decodeJPEG(data)
	case FormatJXL:
		return decodeJXL(data)
	default:
		return nil, &UnsupportedFormatError{Format: string(format)}
	}
}

// Encode dispatches to the concrete encoder for format, returning the
// canonical extension and the encoded bytes. level follows spec.md §4.2's
// per-format defaults and lossless rule, applied by the concrete
// encoders; options carries effort/decodingspeed/num_threads.
func Encode(img image.Image, format Format, level Level, opts Options) (ext string, data []byte, err error) {
	switch format {
	case FormatPNG:
		data, err = encodePNG(img)
	case FormatBMP:
		data, err = encodeBMP(img)
	case FormatTIFF:
		data, err = encodeTIFF(img)
	case FormatJPEG:
		data, err = encodeJPEG(img, level)
	case FormatJXL:
		data, err = encodeJXL(img, level, opts)
	default:
		return "", nil, &UnsupportedFormatError{Format: string(format)}
	}
	if err != nil {
		return "", nil, err
	}
	return format.Ext(), data, nil
}

// imageBuffer wraps data in a *bytes.Reader for the io.Reader-based
// decoders that every format wrapper calls.
func imageBuffer(data []byte) *bytes.Reader {
	return bytes.NewReader(data)
}
