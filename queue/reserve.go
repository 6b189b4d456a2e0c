package queue

import (
	"context"

	"gitlab.com/NebulousLabs/errors"
)

// Reserve atomically selects up to n pending, unleased items and marks
// them leased, per spec.md §4.1: "BEGIN EXCLUSIVE; SELECT ... LIMIT N;
// UPDATE ... SET lease = T + L WHERE filename IN (...); COMMIT." It
// returns an empty, non-nil slice once a pass finds nothing left to
// reserve; callers loop until that happens, which is this package's
// mapping of the "generator that keeps reserving until no more
// available items are found in a pass" contract onto Go.
//
// The update sets lease = now + lease_msec, fixing the bug spec.md §9
// calls out in the original implementation (which wrote lease = now,
// without adding lease_msec, in one code path).
func (q *Queue) Reserve(ctx context.Context, n int) ([]string, error) {
	conn, err := q.db.Conn(ctx)
	if err != nil {
		return nil, errors.Extend(err, "acquiring connection for reservation")
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN EXCLUSIVE TRANSACTION"); err != nil {
		return nil, errors.Extend(err, "beginning exclusive reservation transaction")
	}

	now := nowMillis()

	rows, err := conn.QueryContext(ctx,
		`SELECT filename FROM filelist WHERE finished = 0 AND lease < ? LIMIT ?`,
		now, n,
	)
	if err != nil {
		conn.ExecContext(ctx, "ROLLBACK")
		return nil, errors.Extend(err, "selecting reservable items")
	}

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			conn.ExecContext(ctx, "ROLLBACK")
			return nil, errors.Extend(err, "scanning reservable item")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		conn.ExecContext(ctx, "ROLLBACK")
		return nil, errors.Extend(err, "iterating reservable items")
	}
	rows.Close()

	if len(names) == 0 {
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return nil, errors.Extend(err, "committing empty reservation")
		}
		return names, nil
	}

	newLease := now + q.leaseMsec

	if err := execChunked(ctx, conn, names, func(chunk []string) (string, []interface{}) {
		placeholders, args := inPlaceholders(chunk)
		args = append([]interface{}{newLease}, args...)
		return `UPDATE filelist SET lease = ? WHERE filename IN (` + placeholders + `)`, args
	}); err != nil {
		conn.ExecContext(ctx, "ROLLBACK")
		return nil, errors.Extend(err, "updating leases")
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, errors.Extend(err, "committing reservation")
	}

	return names, nil
}

// ReserveAll repeatedly calls Reserve with batch size n, invoking fn
// with each non-empty batch until a pass finds nothing left, the full
// generator behavior spec.md §4.1 describes. It stops and returns fn's
// error immediately if fn fails.
func (q *Queue) ReserveAll(ctx context.Context, n int, fn func([]string) error) error {
	for {
		batch, err := q.Reserve(ctx, n)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
}
