package cache

import (
	"context"
	"fmt"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"

	"github.com/umputun/swipecache/app/store"
)

// Action is one swipe awaiting delivery to the server.
type Action struct {
	JobID     string
	Direction Direction
}

// PendingQueue holds swipes made while offline as a replaceable snapshot.
// Order is carried by the autoincrement row id assigned on insert; there is
// no per-action timestamp.
type PendingQueue struct {
	store *store.Store
}

type actionRow struct {
	ID        int64  `db:"id"`
	JobID     string `db:"job_id"`
	Direction string `db:"direction"`
}

// Replace overwrites the queue with actions, inserted in input order within
// one transaction. This is a full overwrite, not an append: the caller must
// pass the complete desired queue every time, anything omitted is gone.
func (q *PendingQueue) Replace(ctx context.Context, actions []Action) error {
	err := q.store.RunWrite(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM pending_swipe"); err != nil {
			return fmt.Errorf("failed to drop previous queue: %w", err)
		}
		for _, a := range actions {
			_, err := tx.ExecContext(ctx, "INSERT INTO pending_swipe (job_id, direction) VALUES (?, ?)",
				a.JobID, a.Direction.String())
			if err != nil {
				return fmt.Errorf("failed to insert action for job %s: %w", a.JobID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace pending queue: %w", err)
	}
	log.Printf("[DEBUG] pending queue replaced, %d actions", len(actions))
	return nil
}

// Get returns all queued actions in insertion order. Rows with a direction
// outside the known set are dropped with a warning, they never fail the read.
func (q *PendingQueue) Get(ctx context.Context) ([]Action, error) {
	var rows []actionRow
	err := q.store.RunRead(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &rows,
			"SELECT id, job_id, direction FROM pending_swipe ORDER BY id")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read pending queue: %w", err)
	}

	res := make([]Action, 0, len(rows))
	for _, r := range rows {
		direction, err := ParseDirection(r.Direction)
		if err != nil {
			log.Printf("[WARN] dropped pending swipe for job %s: %v", r.JobID, err)
			continue
		}
		res = append(res, Action{JobID: r.JobID, Direction: direction})
	}
	return res, nil
}

// Clear deletes all queued actions. Called by the sync coordinator after the
// server confirmed the whole queue.
func (q *PendingQueue) Clear(ctx context.Context) error {
	err := q.store.RunWrite(ctx, func(tx *sqlx.Tx) error {
		_, e := tx.ExecContext(ctx, "DELETE FROM pending_swipe")
		return e
	})
	if err != nil {
		return fmt.Errorf("failed to clear pending queue: %w", err)
	}
	return nil
}
