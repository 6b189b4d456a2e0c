package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"tile.png":    FormatPNG,
		"tile.bmp":    FormatBMP,
		"tile.tif":    FormatTIFF,
		"tile.tiff":   FormatTIFF,
		"tile.jpg":    FormatJPEG,
		"tile.jpeg":   FormatJPEG,
		"tile.jxl":    FormatJXL,
		"tile.jpegxl": FormatJXL,
		"tile.PNG":    FormatPNG,
	}
	for name, want := range cases {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}
}

func TestParseFormatUnsupported(t *testing.T) {
	_, err := ParseFormat("tile.gif")
	require.Error(t, err)
	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
}

func TestSplitName(t *testing.T) {
	base, f, err := SplitName("section01/tile_0_0.jpeg")
	require.NoError(t, err)
	require.Equal(t, "section01/tile_0_0", base)
	require.Equal(t, FormatJPEG, f)
}
