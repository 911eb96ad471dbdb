package pgx

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Script application is serialized per document through a lease row, so
// two ingest runs over the same corpus never interleave their merges.
// Leases expire on their own; a crashed run blocks other writers only
// until the TTL runs out.

const (
	leaseTTL          = 2 * time.Minute
	leaseWaitInterval = 250 * time.Millisecond
	leaseWaitJitter   = 250 * time.Millisecond
)

const tryAcquireLeaseSQL = `INSERT INTO graph_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by  = EXCLUDED.locked_by,
    expires_at = EXCLUDED.expires_at
WHERE graph_locks.expires_at < now()
   OR graph_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key`

const releaseLeaseSQL = `DELETE FROM graph_locks
WHERE lock_key = $1 AND locked_by = $2`

// withLease runs fn while holding the lease for key, waiting for the
// current holder if necessary.
func (s *Store) withLease(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token, err := gonanoid.New()
	if err != nil {
		return err
	}

	for {
		var returnedKey string
		err := s.conn.QueryRow(ctx, tryAcquireLeaseSQL, key, token, leaseTTL.Milliseconds()).Scan(&returnedKey)
		if err == nil {
			break
		}
		if !errors.Is(err, pgxv5.ErrNoRows) {
			return fmt.Errorf("acquire lease %s: %w", key, err)
		}
		if err := sleepWithJitter(ctx, leaseWaitInterval, leaseWaitJitter); err != nil {
			return err
		}
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.conn.Exec(releaseCtx, releaseLeaseSQL, key, token)
	}()

	return fn(ctx)
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
