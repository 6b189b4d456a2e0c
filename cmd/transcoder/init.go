package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seung-lab/tile-transcoder/blob"
	"github.com/seung-lab/tile-transcoder/clock"
	"github.com/seung-lab/tile-transcoder/queue"
	"github.com/seung-lab/tile-transcoder/resin"
)

var initFlags struct {
	encoding       string
	compression    string
	level          int
	jxlEffort      int
	jxlSpeed       int
	deleteOriginal bool
	ext            string
	db             string
	resinMode      string
}

var initCmd = &cobra.Command{
	Use:   "init <source> [destination]",
	Short: "Enumerate a source namespace and create a transcode queue",
	Long:  "Enumerate a source namespace and create a transcode queue, inserting one filelist row per matching object.",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInit(args); err != nil {
			die(err)
		}
	},
}

func registerInitFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&initFlags.encoding, "encoding", "same", "output format: same|jpeg|jxl|png|bmp|tiff")
	cmd.Flags().StringVar(&initFlags.compression, "compression", "same", "destination bitstream compression: same|none|gzip|br|zstd")
	cmd.Flags().IntVar(&initFlags.level, "level", -1, "encoding quality/level; unset (-1) selects each codec's lossless or default path")
	cmd.Flags().IntVar(&initFlags.jxlEffort, "jxl-effort", 3, "JPEG-XL encode effort, 1..10")
	cmd.Flags().IntVar(&initFlags.jxlSpeed, "jxl-decoding-speed", 0, "JPEG-XL decoding speed tier, 0..4")
	cmd.Flags().BoolVar(&initFlags.deleteOriginal, "delete-original", false, "delete source objects after a successful write")
	cmd.Flags().StringVar(&initFlags.ext, "ext", "", "comma-separated list of extensions to include (default: all)")
	cmd.Flags().StringVar(&initFlags.db, "db", "", "path to the queue database (required)")
	cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&initFlags.resinMode, "resin", "noop", "resin/tissue policy: noop|log|move|stay")
}

func runInit(args []string) error {
	sourceArg := args[0]
	destArg := sourceArg
	if len(args) == 2 {
		destArg = args[1]
	}

	sourceURI, err := blob.NormalizeURI(sourceArg)
	if err != nil {
		return fmt.Errorf("normalizing source: %w", err)
	}
	destURI, err := blob.NormalizeURI(destArg)
	if err != nil {
		return fmt.Errorf("normalizing destination: %w", err)
	}

	mode, err := resin.ParseMode(initFlags.resinMode)
	if err != nil {
		return err
	}

	reencode := initFlags.encoding
	if reencode == "same" {
		reencode = ""
	}
	recompress := normalizeCompression(initFlags.compression, reencode)

	opts := map[string]int{
		"effort":        initFlags.jxlEffort,
		"decodingspeed": initFlags.jxlSpeed,
	}

	meta := queue.Metadata{
		Source:         sourceURI,
		Dest:           destURI,
		Recompress:     recompress,
		Reencode:       reencode,
		EncodingOpts:   opts,
		ResinHandling:  mode,
		DeleteOriginal: initFlags.deleteOriginal,
		Created:        clock.NowMillis(),
	}
	if initFlags.level >= 0 {
		level := initFlags.level
		meta.EncodingLevel = &level
	}

	source, err := blob.NewAdapter(sourceURI)
	if err != nil {
		return fmt.Errorf("resolving source adapter: %w", err)
	}

	ctx := context.Background()
	names, err := source.List(ctx)
	if err != nil {
		return fmt.Errorf("enumerating source: %w", err)
	}
	names = filterByExtension(names, initFlags.ext)

	q, err := queue.Open(initFlags.db, 0)
	if err != nil {
		return fmt.Errorf("opening queue database: %w", err)
	}
	defer q.Close()

	if err := q.Create(ctx, meta); err != nil {
		return fmt.Errorf("creating queue schema: %w", err)
	}

	count, err := q.Insert(ctx, names)
	if err != nil {
		return fmt.Errorf("inserting filelist rows: %w", err)
	}

	fmt.Printf("inserted %d item(s) from %s into %s\n", count, sourceURI, initFlags.db)
	return nil
}

// normalizeCompression implements the `_normalize_compression` behavior
// supplemented from original_source/ into SPEC_FULL.md: bitstream
// recompression only ever applies to bmp/tiff targets, since png/jpeg/
// jxl already carry internal entropy coding that a second compression
// pass would waste time on.
func normalizeCompression(compression, reencode string) string {
	switch compression {
	case "", "same", "none":
		return ""
	}
	if reencode != "bmp" && reencode != "tiff" {
		return ""
	}
	return compression
}

func filterByExtension(names []string, extCSV string) []string {
	extCSV = strings.TrimSpace(extCSV)
	if extCSV == "" {
		return names
	}
	allowed := map[string]bool{}
	for _, e := range strings.Split(extCSV, ",") {
		e = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(e, ".")))
		if e != "" {
			allowed[e] = true
		}
	}
	var out []string
	for _, n := range names {
		idx := strings.LastIndex(n, ".")
		if idx < 0 {
			continue
		}
		ext := strings.ToLower(n[idx+1:])
		if allowed[ext] {
			out = append(out, n)
		}
	}
	return out
}
