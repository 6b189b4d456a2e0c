// Package codec dispatches (format, bytes) -> pixels and pixels ->
// (extension, bytes) across the canonical tile formats named in spec.md
// §4.2: PNG, BMP, TIFF, JPEG, and JPEG-XL. The codecs themselves are an
// external concern per spec.md §1 ("treated as opaque encode/decode
// functions obtained from libraries"); this package is the seam, not a
// reimplementation of any image format.
package codec

import (
	"path/filepath"
	"strings"
)

// Format identifies one of the canonical tile encodings.
type Format string

// The canonical format set from spec.md §4.2's "Output filename" rule.
const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatJPEG Format = "jpeg"
	FormatJXL  Format = "jxl"
)

// Ext returns the canonical file extension (with leading dot) for a
// format.
func (f Format) Ext() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatBMP:
		return ".bmp"
	case FormatTIFF:
		return ".tiff"
	case FormatJPEG:
		return ".jpeg"
	case FormatJXL:
		return ".jxl"
	default:
		return ""
	}
}

// ParseFormat derives a Format from a filename's suffix, normalizing the
// aliases spec.md §4.2 calls out: .jpg/.jpeg, .jxl/.jpegxl, .tif/.tiff are
// each treated as equivalent.
func ParseFormat(filename string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "jxl", "jpegxl":
		return FormatJXL, nil
	default:
		return "", &UnsupportedFormatError{Format: ext}
	}
}

// SplitName separates a filename into its basename (no extension) and
// parsed source Format.
func SplitName(filename string) (basename string, f Format, err error) {
	f, err = ParseFormat(filename)
	if err != nil {
		return "", "", err
	}
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext), f, nil
}

// ContentType returns a MIME type for a Format, used when a blob.Object
// is constructed for the destination put.
func ContentType(f Format) string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	case FormatJPEG:
		return "image/jpeg"
	case FormatJXL:
		return "image/jxl"
	default:
		return "application/octet-stream"
	}
}
