package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"

	"github.com/umputun/swipecache/app/store"
)

// DefaultTTL is how long a cached batch stays usable after Replace.
const DefaultTTL = time.Hour

// Listing is a single cached job listing. Optional fields are nil when the
// feed did not provide them and round-trip as nil, never defaulted.
type Listing struct {
	ID       string
	Title    string
	Company  string
	Location *string
	Snippet  *string
	Score    float64
	ApplyURL *string
}

// JobCache holds the most recent job feed snapshot. The table contains either
// nothing or exactly one batch, every row stamped with the same write time.
type JobCache struct {
	store *store.Store
	ttl   time.Duration
	now   func() time.Time
}

type listingRow struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	Company   string         `db:"company"`
	Location  sql.NullString `db:"location"`
	Snippet   sql.NullString `db:"snippet"`
	Score     float64        `db:"score"`
	ApplyURL  sql.NullString `db:"apply_url"`
	Timestamp float64        `db:"timestamp"`
}

// Replace atomically swaps the cached snapshot for jobs. All existing rows
// are deleted and the new batch inserted in one transaction, every row
// stamped with the same current time, so a crash mid-batch leaves the old
// snapshot intact and a reader never sees a mix of two batches.
func (c *JobCache) Replace(ctx context.Context, jobs []Listing) error {
	stamp := float64(c.now().Unix())
	err := c.store.RunWrite(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM job_cache"); err != nil {
			return fmt.Errorf("failed to drop previous batch: %w", err)
		}
		for _, j := range jobs {
			row := listingRow{
				ID:        j.ID,
				Title:     j.Title,
				Company:   j.Company,
				Location:  nullString(j.Location),
				Snippet:   nullString(j.Snippet),
				Score:     j.Score,
				ApplyURL:  nullString(j.ApplyURL),
				Timestamp: stamp,
			}
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO job_cache (id, title, company, location, snippet, score, apply_url, timestamp)
				VALUES (:id, :title, :company, :location, :snippet, :score, :apply_url, :timestamp)`, row)
			if err != nil {
				return fmt.Errorf("failed to insert job %s: %w", j.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace job cache: %w", err)
	}
	log.Printf("[DEBUG] job cache replaced, %d listings", len(jobs))
	return nil
}

// Get returns the cached snapshot or nil if nothing usable is cached.
// A batch older than the TTL is deleted as a side effect of the read and
// reported as absent; expiry is detected lazily here, there is no timer.
func (c *JobCache) Get(ctx context.Context) ([]Listing, error) {
	var rows []listingRow
	err := c.store.RunRead(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &rows,
			"SELECT id, title, company, location, snippet, score, apply_url, timestamp FROM job_cache")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read job cache: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	stamp := rows[0].Timestamp // whole batch shares one stamp
	if age := c.now().Sub(time.Unix(int64(stamp), 0)); age > c.ttl {
		log.Printf("[DEBUG] job cache expired, age %v", age)
		// delete only the expired batch, a replace racing in between stays put
		err := c.store.RunWrite(ctx, func(tx *sqlx.Tx) error {
			_, e := tx.ExecContext(ctx, "DELETE FROM job_cache WHERE timestamp = ?", stamp)
			return e
		})
		if err != nil {
			return nil, fmt.Errorf("failed to drop expired batch: %w", err)
		}
		return nil, nil
	}

	res := make([]Listing, 0, len(rows))
	for _, r := range rows {
		res = append(res, Listing{
			ID:       r.ID,
			Title:    r.Title,
			Company:  r.Company,
			Location: stringPtr(r.Location),
			Snippet:  stringPtr(r.Snippet),
			Score:    r.Score,
			ApplyURL: stringPtr(r.ApplyURL),
		})
	}
	return res, nil
}

// Clear deletes the cached snapshot unconditionally.
func (c *JobCache) Clear(ctx context.Context) error {
	err := c.store.RunWrite(ctx, func(tx *sqlx.Tx) error {
		_, e := tx.ExecContext(ctx, "DELETE FROM job_cache")
		return e
	})
	if err != nil {
		return fmt.Errorf("failed to clear job cache: %w", err)
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
