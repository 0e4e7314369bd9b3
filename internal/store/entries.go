package store

import (
	"context"
	"fmt"

	"github.com/christopherklint97/otlog/internal/entry"
	"github.com/christopherklint97/otlog/internal/report"
)

// StateLastAgent remembers the agent picked in the last submitted form.
const StateLastAgent = "last_agent"

var _ entry.Store = (*DB)(nil)

func (db *DB) Append(ctx context.Context, e entry.Entry) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO entries (id, agent_name, date, from_time, to_time, reason, bonus, holiday, overnight, total_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Agent, e.Date, e.From, e.To, e.Reason, e.Bonus, e.Holiday, e.Overnight, e.TotalTime,
	)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// Rows returns every stored entry in insertion order, keyed by header.
func (db *DB) Rows(ctx context.Context) ([]report.Row, error) {
	entries, err := db.Entries(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]report.Row, len(entries))
	for i, e := range entries {
		rows[i] = e.Row()
	}
	return rows, nil
}

func (db *DB) Entries(ctx context.Context) ([]entry.Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, agent_name, date, from_time, to_time, reason, bonus, holiday, overnight, total_time
		 FROM entries
		 ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []entry.Entry
	for rows.Next() {
		var e entry.Entry
		if err := rows.Scan(
			&e.ID, &e.Agent, &e.Date, &e.From, &e.To,
			&e.Reason, &e.Bonus, &e.Holiday, &e.Overnight, &e.TotalTime,
		); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
