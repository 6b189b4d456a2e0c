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

func grayPNGBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) * 8)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestExecutor(t *testing.T, target codec.Format) (*Executor, *queue.Queue, blob.Adapter, blob.Adapter) {
	t.Helper()
	srcRoot := filepath.Join(t.TempDir(), "src")
	dstRoot := filepath.Join(t.TempDir(), "dst")
	require.NoError(t, os.MkdirAll(srcRoot, 0755))
	require.NoError(t, os.MkdirAll(dstRoot, 0755))

	src, err := blob.NewAdapter("file://" + srcRoot)
	require.NoError(t, err)
	dst, err := blob.NewAdapter("file://" + dstRoot)
	require.NoError(t, err)

	q, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"), 5000)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	require.NoError(t, q.Create(context.Background(), queue.Metadata{
		Source: src.String(), Dest: dst.String(), Reencode: string(target),
	}))

	e := &Executor{
		Queue:  q,
		Source: src,
		Dest:   dst,
		Target: target,
	}
	return e, q, src, dst
}

func TestRunBatchWritesTranscodedOutputAndMarksFinished(t *testing.T) {
	ctx := context.Background()
	e, q, src, dst := newTestExecutor(t, codec.FormatBMP)

	require.NoError(t, src.Put(ctx, []blob.Object{{Path: "a.png", Content: grayPNGBytes(t)}}))
	_, err := q.Insert(ctx, []string{"a.png"})
	require.NoError(t, err)

	result, err := e.RunBatch(ctx, []string{"a.png"})
	require.NoError(t, err)
	require.Equal(t, BatchResult{Reserved: 1, Written: 1}, result)

	names, err := dst.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.bmp"}, names)

	finished, err := q.Finished(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), finished)
}

func TestRunBatchRecordsErrorForMissingSource(t *testing.T) {
	ctx := context.Background()
	e, q, _, _ := newTestExecutor(t, codec.FormatBMP)

	_, err := q.Insert(ctx, []string{"ghost.png"})
	require.NoError(t, err)

	result, err := e.RunBatch(ctx, []string{"ghost.png"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Errored)

	hasErrors, err := q.HasErrors(ctx)
	require.NoError(t, err)
	require.True(t, hasErrors)

	// Missing items are still included in the finished mark, per the
	// queue's non-idempotent finished() semantics that treat a
	// recorded-error item as terminal.
	finished, err := q.Finished(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), finished)
}

func TestRunBatchSkipsResinTilesWithoutWriting(t *testing.T) {
	ctx := context.Background()
	e, q, src, dst := newTestExecutor(t, codec.FormatBMP)
	e.Detector = func(ctx context.Context, name string, img image.Image) error {
		return resin.ErrSkipTranscoding
	}

	require.NoError(t, src.Put(ctx, []blob.Object{{Path: "a.png", Content: grayPNGBytes(t)}}))
	_, err := q.Insert(ctx, []string{"a.png"})
	require.NoError(t, err)

	result, err := e.RunBatch(ctx, []string{"a.png"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, 0, result.Written)

	names, err := dst.List(ctx)
	require.NoError(t, err)
	require.Empty(t, names)

	finished, err := q.Finished(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), finished, "skipped items still count as finished work")
}

func TestRunBatchDeletesOriginalOnlyForWrittenItems(t *testing.T) {
	ctx := context.Background()
	e, q, src, _ := newTestExecutor(t, codec.FormatBMP)
	e.DeleteOriginal = true

	require.NoError(t, src.Put(ctx, []blob.Object{{Path: "a.png", Content: grayPNGBytes(t)}}))
	_, err := q.Insert(ctx, []string{"a.png", "missing.png"})
	require.NoError(t, err)

	_, err = e.RunBatch(ctx, []string{"a.png", "missing.png"})
	require.NoError(t, err)

	names, err := src.List(ctx)
	require.NoError(t, err)
	require.Empty(t, names, "the successfully transcoded original should be deleted")
}

func TestRunBatchEmptyNamesIsNoop(t *testing.T) {
	ctx := context.Background()
	e, _, _, _ := newTestExecutor(t, codec.FormatBMP)
	result, err := e.RunBatch(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, BatchResult{}, result)
}

func TestRunToExhaustionDrainsEntireQueue(t *testing.T) {
	ctx := context.Background()
	e, q, src, dst := newTestExecutor(t, codec.FormatBMP)

	data := grayPNGBytes(t)
	names := []string{"a.png", "b.png", "c.png", "d.png", "e.png"}
	for _, n := range names {
		require.NoError(t, src.Put(ctx, []blob.Object{{Path: n, Content: data}}))
	}
	_, err := q.Insert(ctx, names)
	require.NoError(t, err)

	require.NoError(t, e.RunToExhaustion(ctx, 2))

	out, err := dst.List(ctx)
	require.NoError(t, err)
	require.Len(t, out, 5)

	remaining, err := q.Remaining(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), remaining)
}
