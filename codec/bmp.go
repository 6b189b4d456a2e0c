package codec

import (
	"bytes"
	"image"

	"golang.org/x/image/bmp"
)

func decodeBMP(data []byte) (image.Image, error) {
	img, err := bmp.Decode(imageBuffer(data))
	if err != nil {
		return nil, &DecodeError{Format: FormatBMP, Err: err}
	}
	return img, nil
}

func encodeBMP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, &EncodeError{Format: FormatBMP, Err: err}
	}
	return buf.Bytes(), nil
}
