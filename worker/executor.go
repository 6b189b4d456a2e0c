// Package worker assembles the queue, pipeline, blob, and resin packages
// into the per-batch execution loop spec.md §4.4 describes, and the
// serial/parallel driver on top of it (driver.go).
package worker

import (
	"context"

	"gitlab.com/NebulousLabs/errors"

	"github.com/seung-lab/tile-transcoder/blob"
	"github.com/seung-lab/tile-transcoder/codec"
	"github.com/seung-lab/tile-transcoder/persist"
	"github.com/seung-lab/tile-transcoder/pipeline"
	"github.com/seung-lab/tile-transcoder/queue"
	"github.com/seung-lab/tile-transcoder/resin"
)

// Executor runs one reserved batch of filenames through the transcode
// pipeline and records the outcome back into the queue. It holds no
// per-batch state, so the same Executor is reused across every batch a
// Driver reserves.
type Executor struct {
	Queue  *queue.Queue
	Source blob.Adapter
	Dest   blob.Adapter

	// Target is the destination format. The empty string means "same as
	// each item's own source format" (queue.Metadata.Reencode's "empty
	// means same as source" contract), resolved per item since a batch
	// can mix source formats.
	Target     codec.Format
	Level      codec.Level
	Options    codec.Options
	Recompress string // "", "gzip", "br", "zstd"

	DeleteOriginal bool
	Detector       resin.Callback

	Logger  *persist.Logger
	Verbose bool
}

// BatchResult summarizes one RunBatch call; RunToExhaustion logs it as a
// per-batch summary.
type BatchResult struct {
	Reserved int
	Written  int
	Skipped  int
	Errored  int
}

// RunBatch implements spec.md §4.4's seven-step per-batch loop:
//  1. bulk-get the reserved names from Source
//  2. transcode each item through the pipeline
//  3. on a per-item failure, record it as an error and drop it from the
//     write set rather than aborting the batch
//  4. optionally recompress bmp/tiff destination bytes
//  5. bulk-put the successfully transcoded items to Dest
//  6. optionally bulk-delete the originals that were successfully
//     written (never the skipped or errored ones)
//  7. mark the entire reserved batch finished, including skipped items,
//     per spec.md §4.2 ("a detector SKIP still counts as finished work")
func (e *Executor) RunBatch(ctx context.Context, names []string) (BatchResult, error) {
	result := BatchResult{Reserved: len(names)}
	if len(names) == 0 {
		return result, nil
	}

	bodies, err := e.Source.Get(ctx, names)
	if err != nil {
		return result, errors.Extend(err, "fetching reserved batch")
	}

	var (
		writes     []blob.Object
		writtenSrc []string
	)

	for _, name := range names {
		data, ok := bodies[name]
		if !ok {
			result.Errored++
			if err := e.Queue.RecordError(ctx, name, errMissingSource(name)); err != nil {
				return result, errors.Extend(err, "recording missing-source error")
			}
			continue
		}

		target, err := e.targetFormat(name)
		if err != nil {
			result.Errored++
			if err := e.Queue.RecordError(ctx, name, err); err != nil {
				return result, errors.Extend(err, "recording unsupported-format error")
			}
			continue
		}

		outName, outBytes, action, err := pipeline.Transcode(ctx, name, data, target, e.Level, e.Options, e.Detector)
		if err != nil {
			result.Errored++
			if e.Logger != nil {
				e.Logger.Printf("error transcoding %s: %v", name, err)
			}
			if err := e.Queue.RecordError(ctx, name, err); err != nil {
				return result, errors.Extend(err, "recording transcode error")
			}
			continue
		}

		if action == pipeline.ActionSkip {
			result.Skipped++
			if e.Logger != nil {
				e.Logger.Verbosef("skipped %s (resin policy)", name)
			}
			continue
		}

		if e.Recompress != "" && recompressTolerates(string(target)) {
			outBytes, err = recompress(e.Recompress, outBytes)
			if err != nil {
				result.Errored++
				if err := e.Queue.RecordError(ctx, name, err); err != nil {
					return result, errors.Extend(err, "recording recompress error")
				}
				continue
			}
		}

		writes = append(writes, blob.Object{
			Path:        outName,
			Content:     outBytes,
			ContentType: codec.ContentType(target),
		})
		writtenSrc = append(writtenSrc, name)
		result.Written++
		if e.Logger != nil {
			e.Logger.Verbosef("transcoded %s -> %s", name, outName)
		}
	}

	if len(writes) > 0 {
		if err := e.Dest.Put(ctx, writes); err != nil {
			return result, errors.Extend(err, "writing transcoded batch")
		}
	}

	if e.DeleteOriginal && len(writtenSrc) > 0 {
		if err := e.Source.Delete(ctx, writtenSrc); err != nil {
			return result, errors.Extend(err, "deleting transcoded originals")
		}
	}

	if err := e.Queue.MarkFinished(ctx, names); err != nil {
		return result, errors.Extend(err, "marking batch finished")
	}

	return result, nil
}

// RunToExhaustion reserves and runs batches of batchSize until the
// queue has nothing left to reserve, the Go-idiomatic form of spec.md
// §4.1's reservation generator (queue.ReserveAll).
func (e *Executor) RunToExhaustion(ctx context.Context, batchSize int) error {
	return e.Queue.ReserveAll(ctx, batchSize, func(batch []string) error {
		result, err := e.RunBatch(ctx, batch)
		if err != nil {
			return err
		}
		if e.Logger != nil {
			e.Logger.Printf("batch done: reserved=%d written=%d skipped=%d errored=%d",
				result.Reserved, result.Written, result.Skipped, result.Errored)
		}
		return nil
	})
}

// targetFormat resolves the effective destination format for name,
// honoring e.Target == "" as "same format as this item's source", per
// queue.Metadata.Reencode's contract.
func (e *Executor) targetFormat(name string) (codec.Format, error) {
	if e.Target != "" {
		return e.Target, nil
	}
	_, srcFormat, err := codec.SplitName(name)
	if err != nil {
		return "", err
	}
	return srcFormat, nil
}

type errMissingSource string

func (e errMissingSource) Error() string {
	return "worker: source object missing for " + string(e)
}
