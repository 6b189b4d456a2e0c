package queue

import (
	"context"
	"strconv"
	"strings"

	"gitlab.com/NebulousLabs/errors"

	"github.com/seung-lab/tile-transcoder/resin"
)

func (q *Queue) scalar(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if err != nil {
		return 0, errors.Extend(err, "running scalar query")
	}
	return v, nil
}

// Total returns the total number of items ever inserted, cached after
// the first read per spec.md §4.1 ("cached after first read; equals
// max(id)").
func (q *Queue) Total(ctx context.Context) (int64, error) {
	q.mu.Lock()
	if q.totalLoaded {
		defer q.mu.Unlock()
		return q.total, nil
	}
	q.mu.Unlock()

	var total sql64
	err := q.db.QueryRowContext(ctx, `SELECT max(id) FROM filelist`).Scan(&total)
	if err != nil {
		return 0, errors.Extend(err, "querying total item count")
	}

	q.mu.Lock()
	q.total, q.totalLoaded = total.value, true
	q.mu.Unlock()

	return total.value, nil
}

// sql64 scans a nullable integer column (max(id) is NULL on an empty
// filelist) as 0 instead of erroring.
type sql64 struct {
	value int64
}

func (s *sql64) Scan(src interface{}) error {
	if src == nil {
		s.value = 0
		return nil
	}
	switch v := src.(type) {
	case int64:
		s.value = v
	default:
		s.value = 0
	}
	return nil
}

// Finished returns the finished counter maintained by MarkFinished.
func (q *Queue) Finished(ctx context.Context) (int64, error) {
	return q.scalar(ctx, `SELECT value FROM stats WHERE id = 1`)
}

// NumErrors returns the count of rows in the error log.
func (q *Queue) NumErrors(ctx context.Context) (int64, error) {
	return q.scalar(ctx, `SELECT count(*) FROM errors`)
}

// HasErrors reports whether any item has ever been recorded as errored.
func (q *Queue) HasErrors(ctx context.Context) (bool, error) {
	n, err := q.NumErrors(ctx)
	return n > 0, err
}

// Remaining returns total − finished − errored, per spec.md §9's
// corrected formula ("remaining() = total − finished − errored_count"),
// replacing the original implementation's total − finished (which
// double-counted errored items as still pending).
func (q *Queue) Remaining(ctx context.Context) (int64, error) {
	total, err := q.Total(ctx)
	if err != nil {
		return 0, err
	}
	finished, err := q.Finished(ctx)
	if err != nil {
		return 0, err
	}
	errored, err := q.numErroredItems(ctx)
	if err != nil {
		return 0, err
	}
	return total - finished - errored, nil
}

// numErroredItems counts filelist rows with finished = 2, distinct from
// NumErrors which counts error-log rows (a retried item could in
// principle log more than one error, though this implementation records
// exactly one per errored item).
func (q *Queue) numErroredItems(ctx context.Context) (int64, error) {
	return q.scalar(ctx, `SELECT count(*) FROM filelist WHERE finished = 2`)
}

// NumLeased returns the count of items currently under an unexpired
// lease.
func (q *Queue) NumLeased(ctx context.Context) (int64, error) {
	return q.scalar(ctx, `SELECT count(*) FROM filelist WHERE finished = 0 AND lease > ?`, nowMillis())
}

// Metadata reads back the single immutable job-metadata row.
func (q *Queue) Metadata(ctx context.Context) (Metadata, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT source, dest, recompress, reencode, encoding_level, encoding_options,
		       resin_handling, delete_original, created
		FROM xfermeta LIMIT 1
	`)

	var (
		source, dest          string
		recompress, reencode  sqlString
		encodingLevel         sqlInt
		encodingOptionsSerial sqlString
		resinHandling         int
		deleteOriginal        bool
		created               int64
	)
	if err := row.Scan(&source, &dest, &recompress, &reencode, &encodingLevel,
		&encodingOptionsSerial, &resinHandling, &deleteOriginal, &created); err != nil {
		return Metadata{}, errors.Extend(err, "reading job metadata row")
	}

	mode, err := resin.ParseMode(modeNames[resinHandling])
	if err != nil {
		mode = resin.NOOP
	}

	meta := Metadata{
		Source:         source,
		Dest:           dest,
		Recompress:     recompress.value,
		Reencode:       reencode.value,
		ResinHandling:  mode,
		DeleteOriginal: deleteOriginal,
		Created:        created,
	}
	if encodingLevel.valid {
		v := encodingLevel.value
		meta.EncodingLevel = &v
	}
	meta.EncodingOpts = parseOptions(encodingOptionsSerial.value)

	return meta, nil
}

// modeNames maps resin.Mode's integer encoding back to ParseMode's
// vocabulary, since the database stores the mode as the same integer
// resin.Mode already uses.
var modeNames = map[int]string{
	int(resin.NOOP): "noop",
	int(resin.LOG):  "log",
	int(resin.MOVE): "move",
	int(resin.STAY): "stay",
}

func parseOptions(s string) map[string]int {
	if s == "" {
		return map[string]int{}
	}
	opts := map[string]int{}
	for _, pair := range strings.Split(s, ";") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		n, err := strconv.Atoi(kv[1])
		if err != nil {
			continue
		}
		opts[kv[0]] = n
	}
	return opts
}

type sqlString struct {
	value string
	valid bool
}

func (s *sqlString) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case string:
		s.value, s.valid = v, true
	case []byte:
		s.value, s.valid = string(v), true
	}
	return nil
}

type sqlInt struct {
	value int
	valid bool
}

func (s *sqlInt) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	if v, ok := src.(int64); ok {
		s.value, s.valid = int(v), true
	}
	return nil
}
