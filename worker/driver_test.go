package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seung-lab/tile-transcoder/blob"
	"github.com/seung-lab/tile-transcoder/codec"
	"github.com/seung-lab/tile-transcoder/queue"
)

func TestNewDriverRejectsParallelWithZeroLease(t *testing.T) {
	e, _, _, _ := newTestExecutor(t, codec.FormatBMP)
	_, err := NewDriver(e, 4, 10, 0)
	require.ErrorIs(t, err, ErrParallelNeedsLease)
}

func TestNewDriverAllowsSerialWithZeroLease(t *testing.T) {
	e, _, _, _ := newTestExecutor(t, codec.FormatBMP)
	d, err := NewDriver(e, 1, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, d.Parallel)
}

func TestDriverRunSerialDrainsQueue(t *testing.T) {
	ctx := context.Background()
	e, q, src, dst := newTestExecutor(t, codec.FormatBMP)

	data := grayPNGBytes(t)
	names := []string{"a.png", "b.png", "c.png"}
	for _, n := range names {
		require.NoError(t, src.Put(ctx, []blob.Object{{Path: n, Content: data}}))
	}
	_, err := q.Insert(ctx, names)
	require.NoError(t, err)

	d, err := NewDriver(e, 1, 2, 5000)
	require.NoError(t, err)
	require.NoError(t, d.Run(ctx))

	out, err := dst.List(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestDriverRunParallelDrainsQueue(t *testing.T) {
	ctx := context.Background()
	e, q, src, dst := newTestExecutor(t, codec.FormatBMP)

	data := grayPNGBytes(t)
	names := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("tile-%02d.png", i)
		names = append(names, name)
		require.NoError(t, src.Put(ctx, []blob.Object{{Path: name, Content: data}}))
	}
	_, err := q.Insert(ctx, names)
	require.NoError(t, err)

	d, err := NewDriver(e, 4, 3, 5000)
	require.NoError(t, err)
	d.RampMsec = 5
	require.NoError(t, d.Run(ctx))

	out, err := dst.List(ctx)
	require.NoError(t, err)
	require.Len(t, out, 20)

	remaining, err := q.Remaining(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), remaining)
}

func TestDriverRunRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e, q, src, _ := newTestExecutor(t, codec.FormatBMP)

	data := grayPNGBytes(t)
	require.NoError(t, src.Put(ctx, []blob.Object{{Path: "a.png", Content: data}}))
	_, err := q.Insert(ctx, []string{"a.png"})
	require.NoError(t, err)

	cancel()
	d, err := NewDriver(e, 1, 10, 5000)
	require.NoError(t, err)
	// A canceled context must not hang Run forever, whether it surfaces
	// as a context error from the database layer or a clean early return.
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
