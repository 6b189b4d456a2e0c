package codec

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func grayTestImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 16, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x * 17) ^ (y * 31))})
		}
	}
	return img
}

func TestChannelCount(t *testing.T) {
	require.Equal(t, 1, ChannelCount(image.NewGray(image.Rect(0, 0, 1, 1))))
	require.Equal(t, 1, ChannelCount(image.NewGray16(image.Rect(0, 0, 1, 1))))
	require.Equal(t, 3, ChannelCount(image.NewYCbCr(image.Rect(0, 0, 1, 1), image.YCbCrSubsampleRatio420)))
	require.Equal(t, 4, ChannelCount(image.NewRGBA(image.Rect(0, 0, 1, 1))))
}

func TestDecodeEmptyInput(t *testing.T) {
	_, err := Decode(nil, FormatPNG)
	require.Error(t, err)
	var empty *EmptyInputError
	require.ErrorAs(t, err, &empty)
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, Format("gif"))
	require.Error(t, err)
	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
}

// losslessRoundTrip verifies that encoding then decoding a format named
// lossless by spec.md §8 reproduces the source pixels exactly.
func losslessRoundTrip(t *testing.T, format Format) {
	t.Helper()
	src := grayTestImage()

	ext, data, err := Encode(src, format, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, format.Ext(), ext)
	require.NotEmpty(t, data)

	decoded, err := Decode(data, format)
	require.NoError(t, err)
	require.Equal(t, src.Bounds(), decoded.Bounds())

	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			wantR, wantG, wantB, _ := src.At(x, y).RGBA()
			gotR, gotG, gotB, _ := decoded.At(x, y).RGBA()
			require.Equal(t, wantR, gotR, "x=%d y=%d", x, y)
			require.Equal(t, wantG, gotG, "x=%d y=%d", x, y)
			require.Equal(t, wantB, gotB, "x=%d y=%d", x, y)
		}
	}
}

func TestPNGRoundTripLossless(t *testing.T) {
	losslessRoundTrip(t, FormatPNG)
}

func TestBMPRoundTripLossless(t *testing.T) {
	losslessRoundTrip(t, FormatBMP)
}

func TestTIFFRoundTripLossless(t *testing.T) {
	losslessRoundTrip(t, FormatTIFF)
}

// TestJPEGRoundTripWithinTolerance checks spec.md §8's JPEG tolerance
// bounds: max absolute per-pixel difference under 3 and mean absolute
// difference under 3, at the default quality level.
func TestJPEGRoundTripWithinTolerance(t *testing.T) {
	src := grayTestImage()

	_, data, err := Encode(src, FormatJPEG, nil, Options{})
	require.NoError(t, err)

	decoded, err := Decode(data, FormatJPEG)
	require.NoError(t, err)

	b := src.Bounds()
	var maxDiff, sumDiff, n float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			want := src.GrayAt(x, y).Y
			gotR, _, _, _ := decoded.At(x, y).RGBA()
			got := uint8(gotR >> 8)
			diff := math.Abs(float64(int(want) - int(got)))
			if diff > maxDiff {
				maxDiff = diff
			}
			sumDiff += diff
			n++
		}
	}
	require.Less(t, maxDiff, 3.0)
	require.Less(t, sumDiff/n, 3.0)
}

func TestJPEGEncodeRejectsUnsupportedChannelCount(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	_, _, err := Encode(img, FormatJPEG, nil, Options{})
	require.Error(t, err)
	var shapeErr *UnsupportedShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, 4, shapeErr.Channels)
}

func TestJXLEncodeRejectsMultichannel(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio444)
	_, _, err := Encode(img, FormatJXL, nil, Options{})
	require.Error(t, err)
	var shapeErr *UnsupportedShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, FormatJXL, shapeErr.Format)
	require.Equal(t, 3, shapeErr.Channels)
}
