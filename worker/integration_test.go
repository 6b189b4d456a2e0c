package worker

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seung-lab/tile-transcoder/blob"
	"github.com/seung-lab/tile-transcoder/codec"
	"github.com/seung-lab/tile-transcoder/queue"
	"github.com/seung-lab/tile-transcoder/resin"
)

// uniformBrightPNG renders a tile the default detector classifies as
// resin (bright, flat, no texture), mirroring resin/detector_test.go's
// uniformImage helper.
func uniformBrightPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = 230
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func texturedTissuePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := uint8(40)
			if (x+y)%2 == 0 {
				v = 120
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// TestEndToEndResinMoveRelocatesResinAndKeepsTissue exercises spec.md
// §8's resin-move scenario end to end: a resin tile is relocated to the
// sibling resin/ directory and never written to the destination, while a
// tissue tile is transcoded normally.
func TestEndToEndResinMoveRelocatesResinAndKeepsTissue(t *testing.T) {
	ctx := context.Background()
	srcRoot := filepath.Join(t.TempDir(), "tiles", "src")
	dstRoot := filepath.Join(t.TempDir(), "tiles", "dst")
	require.NoError(t, os.MkdirAll(srcRoot, 0755))
	require.NoError(t, os.MkdirAll(dstRoot, 0755))

	src, err := blob.NewAdapter("file://" + srcRoot)
	require.NoError(t, err)
	dst, err := blob.NewAdapter("file://" + dstRoot)
	require.NoError(t, err)

	require.NoError(t, src.Put(ctx, []blob.Object{
		{Path: "resin.png", Content: uniformBrightPNG(t)},
		{Path: "tissue.png", Content: texturedTissuePNG(t)},
	}))

	policy, err := resin.NewPolicy(resin.MOVE, src.String(), nil, false)
	require.NoError(t, err)
	defer policy.Close()

	q, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"), 5000)
	require.NoError(t, err)
	defer q.Close()
	require.NoError(t, q.Create(ctx, queue.Metadata{Source: src.String(), Dest: dst.String()}))
	_, err = q.Insert(ctx, []string{"resin.png", "tissue.png"})
	require.NoError(t, err)

	e := &Executor{
		Queue:    q,
		Source:   src,
		Dest:     dst,
		Target:   codec.FormatBMP,
		Detector: policy.Callback(),
	}
	result, err := e.RunBatch(ctx, []string{"resin.png", "tissue.png"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Written)
	require.Equal(t, 1, result.Skipped)

	destNames, err := dst.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"tissue.bmp"}, destNames)

	_, err = os.Stat(filepath.Join(srcRoot, "resin.png"))
	require.True(t, os.IsNotExist(err), "resin source should have been moved away")

	movedData, err := os.ReadFile(filepath.Join(filepath.Dir(srcRoot), "resin", "resin.png"))
	require.NoError(t, err)
	require.NotEmpty(t, movedData)

	_, err = os.Stat(filepath.Join(srcRoot, "tissue.png"))
	require.NoError(t, err, "tissue source is untouched since DeleteOriginal is false")

	finished, err := q.Finished(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), finished)
}

// TestEndToEndParallelWorkersRefuseZeroLease exercises spec.md §8's
// "refused -p 2 --lease-msec 0" configuration scenario.
func TestEndToEndParallelWorkersRefuseZeroLease(t *testing.T) {
	e, _, _, _ := newTestExecutor(t, codec.FormatBMP)
	_, err := NewDriver(e, 2, 50, 0)
	require.ErrorIs(t, err, ErrParallelNeedsLease)
}

// TestEndToEndInPlaceTranscodeDeletesOriginal exercises spec.md §8's
// in-place transcode + delete-original scenario: source and destination
// are the same adapter, and a successfully transcoded original is
// removed once its replacement is written.
func TestEndToEndInPlaceTranscodeDeletesOriginal(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "inplace")
	require.NoError(t, os.MkdirAll(root, 0755))

	adapter, err := blob.NewAdapter("file://" + root)
	require.NoError(t, err)

	require.NoError(t, adapter.Put(ctx, []blob.Object{{Path: "a.png", Content: uniformBrightPNG(t)}}))

	q, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"), 5000)
	require.NoError(t, err)
	defer q.Close()
	require.NoError(t, q.Create(ctx, queue.Metadata{Source: adapter.String(), Dest: adapter.String(), DeleteOriginal: true}))
	_, err = q.Insert(ctx, []string{"a.png"})
	require.NoError(t, err)

	e := &Executor{
		Queue:          q,
		Source:         adapter,
		Dest:           adapter,
		Target:         codec.FormatJPEG,
		DeleteOriginal: true,
	}
	result, err := e.RunBatch(ctx, []string{"a.png"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Written)

	names, err := adapter.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.jpeg"}, names)
}
