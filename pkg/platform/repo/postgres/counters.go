package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Counters is a rate limit backend sharing window counters between
// instances through the rate_limit_counter table.
type Counters struct {
	db DBTX
}

// NewCounters creates a counter store on db
func NewCounters(db DBTX) *Counters {
	return &Counters{db: db}
}

// NewCountersWithPool creates a counter store on a connection pool
func NewCountersWithPool(pool *pgxpool.Pool) *Counters {
	return &Counters{db: pool}
}

// Increment counts one call for key, opening a new window when the stored
// one has ended. The upsert keeps concurrent callers consistent.
func (c *Counters) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	query := `
		INSERT INTO rate_limit_counter (key, count, reset_at)
		VALUES ($1, 1, $3)
		ON CONFLICT (key) DO UPDATE SET
			count = CASE WHEN rate_limit_counter.reset_at <= $2 THEN 1 ELSE rate_limit_counter.count + 1 END,
			reset_at = CASE WHEN rate_limit_counter.reset_at <= $2 THEN $3 ELSE rate_limit_counter.reset_at END
		RETURNING count, reset_at`

	var count int
	var resetAt time.Time
	err := c.db.QueryRow(ctx, query, key, now.UTC(), now.Add(window).UTC()).Scan(&count, &resetAt)
	if err != nil {
		return 0, time.Time{}, handlePostgresError("increment rate limit counter", err)
	}
	return count, resetAt, nil
}

// Decrement gives back one call while the window is open.
func (c *Counters) Decrement(ctx context.Context, key string, now time.Time) error {
	query := `
		UPDATE rate_limit_counter SET count = GREATEST(count - 1, 0)
		WHERE key = $1 AND reset_at > $2`

	_, err := c.db.Exec(ctx, query, key, now.UTC())
	return handlePostgresError("decrement rate limit counter", err)
}

// Sweep deletes counters whose window ended before now.
func (c *Counters) Sweep(ctx context.Context, now time.Time) (int64, error) {
	tag, err := c.db.Exec(ctx, `DELETE FROM rate_limit_counter WHERE reset_at <= $1`, now.UTC())
	if err != nil {
		return 0, handlePostgresError("sweep rate limit counters", err)
	}
	return tag.RowsAffected(), nil
}
