package queue

import (
	"context"
	"database/sql"
	"strings"
)

// execer is satisfied by *sql.DB, *sql.Tx, and *sql.Conn, letting the
// chunking helpers below run against whichever one a caller is holding.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// chunks splits names into groups no larger than sqliteMaxParams,
// matching spec.md §4.1's "commit in chunks bounded by the database's
// host-parameter limit" for both insert and markFinished.
func chunks(names []string, size int) [][]string {
	var out [][]string
	for len(names) > 0 {
		n := size
		if n > len(names) {
			n = len(names)
		}
		out = append(out, names[:n])
		names = names[n:]
	}
	return out
}

// inPlaceholders renders a `?,?,?` placeholder list and the matching
// []interface{} argument slice for a chunk of filenames.
func inPlaceholders(names []string) (string, []interface{}) {
	args := make([]interface{}, len(names))
	ph := make([]string, len(names))
	for i, n := range names {
		args[i] = n
		ph[i] = "?"
	}
	return strings.Join(ph, ","), args
}

// execChunked runs build(chunk) -> (query, args) for every chunk of
// names bounded by sqliteMaxParams, executing each via e in turn.
func execChunked(ctx context.Context, e execer, names []string, build func(chunk []string) (string, []interface{})) error {
	for _, chunk := range chunks(names, sqliteMaxParams) {
		query, args := build(chunk)
		if _, err := e.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}
