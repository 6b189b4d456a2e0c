package queue

import (
	"context"

	"gitlab.com/NebulousLabs/errors"
)

// Insert appends items with finished = 0, lease = 0, committing in
// chunks bounded by sqliteMaxParams, and returns the number inserted,
// per spec.md §4.1.
func (q *Queue) Insert(ctx context.Context, names []string) (int, error) {
	count := 0
	for _, chunk := range chunks(names, sqliteMaxParams) {
		placeholders, args := valuesPlaceholders(chunk)
		query := `INSERT INTO filelist(filename, finished, lease) VALUES ` + placeholders
		if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
			return count, errors.Extend(err, "inserting filelist chunk")
		}
		count += len(chunk)
	}

	q.mu.Lock()
	q.totalLoaded = false
	q.mu.Unlock()

	return count, nil
}

// valuesPlaceholders renders `(?,0,0),(?,0,0),...` for a chunk of
// filenames being inserted with finished = 0, lease = 0.
func valuesPlaceholders(names []string) (string, []interface{}) {
	args := make([]interface{}, len(names))
	parts := make([]string, len(names))
	for i, n := range names {
		args[i] = n
		parts[i] = "(?,0,0)"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "," + p
	}
	return out, args
}

// MarkFinished sets finished = 1 for names and increments the finished
// counter by len(names), chunked to respect sqliteMaxParams. Per
// spec.md §4.1 this is not idempotent with respect to the counter:
// callers must not call it twice for the same names.
func (q *Queue) MarkFinished(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Extend(err, "beginning markFinished transaction")
	}
	defer tx.Rollback()

	if err := execChunked(ctx, tx, names, func(chunk []string) (string, []interface{}) {
		placeholders, args := inPlaceholders(chunk)
		return `UPDATE filelist SET finished = 1 WHERE filename IN (` + placeholders + `)`, args
	}); err != nil {
		return errors.Extend(err, "marking items finished")
	}

	for _, chunk := range chunks(names, sqliteMaxParams) {
		if _, err := tx.ExecContext(ctx, `UPDATE stats SET value = value + ? WHERE id = 1`, len(chunk)); err != nil {
			return errors.Extend(err, "incrementing finished counter")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Extend(err, "committing markFinished transaction")
	}
	return nil
}

// RecordError appends an error-log entry for name and sets its
// finished = 2, per spec.md §4.1. It does NOT increment the finished
// counter.
func (q *Queue) RecordError(ctx context.Context, name string, cause error) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Extend(err, "beginning recordError transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO errors (filename, error, created) VALUES (?, ?, ?)`,
		name, cause.Error(), nowMillis(),
	); err != nil {
		return errors.Extend(err, "inserting error log entry")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE filelist SET finished = 2 WHERE filename = ?`, name,
	); err != nil {
		return errors.Extend(err, "marking item errored")
	}

	if err := tx.Commit(); err != nil {
		return errors.Extend(err, "committing recordError transaction")
	}
	return nil
}

// Release sets lease = 0 on every item, used by operators to recover a
// stuck queue per spec.md §4.1. It does not reset finished = 2 items,
// matching spec.md §9's "release() does NOT reset finished" note:
// operators must manually requeue errored items if desired.
func (q *Queue) Release(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE filelist SET lease = 0`); err != nil {
		return errors.Extend(err, "releasing leases")
	}
	return nil
}
