package codec

import (
	"bytes"
	"image"
	"image/jpeg"
)

// jpegDefaultQuality is spec.md §4.2's documented default ("Level
// defaults: JPEG 85").
const jpegDefaultQuality = 85

func decodeJPEG(data []byte) (image.Image, error) {
	img, err := jpeg.Decode(imageBuffer(data))
	if err != nil {
		return nil, &DecodeError{Format: FormatJPEG, Err: err}
	}
	return img, nil
}

// encodeJPEG requires a 1- or 3-channel uint8 image, per spec.md §4.2.
// The channel count is derived up front via ChannelCount rather than
// branched on lazily, which is the fix for the §9 "num_channel read
// before assignment" bug in the original implementation.
func encodeJPEG(img image.Image, level Level) ([]byte, error) {
	channels := ChannelCount(img)
	if channels != 1 && channels != 3 {
		return nil, &UnsupportedShapeError{Format: FormatJPEG, Channels: channels}
	}

	quality := jpegDefaultQuality
	if level != nil {
		quality = *level
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, &EncodeError{Format: FormatJPEG, Err: err}
	}
	return buf.Bytes(), nil
}
