package worker

import (
	"bytes"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"gitlab.com/NebulousLabs/errors"
)

// recompressTolerates reports whether target is one of the two formats spec.md §4.4 step 4 says
// tolerate an additional destination-side bitstream compression pass;
// png/jpeg/jxl already carry their own internal entropy coding.
func recompressTolerates(target string) bool {
	return target == "bmp" || target == "tiff"
}

// recompress applies the named bitstream compression scheme to data.
// scheme is one of "gzip", "br", "zstd"; "" or "none" is a no-op.
func recompress(scheme string, data []byte) ([]byte, error) {
	switch scheme {
	case "", "none":
		return data, nil
	case "gzip":
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, errors.Extend(err, "gzip-compressing output")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Extend(err, "closing gzip writer")
		}
		return buf.Bytes(), nil
	case "br":
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err := w.Write(data); err != nil {
			return nil, errors.Extend(err, "brotli-compressing output")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Extend(err, "closing brotli writer")
		}
		return buf.Bytes(), nil
	case "zstd":
		var buf bytes.Buffer
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, errors.Extend(err, "creating zstd writer")
		}
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, errors.Extend(err, "zstd-compressing output")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Extend(err, "closing zstd writer")
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.New("worker: unrecognized compression scheme " + scheme)
	}
}
