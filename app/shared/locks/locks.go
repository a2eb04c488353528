// Package locks provides contest-level mutual exclusion on top of Postgres
// transaction advisory locks.
package locks

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

const (
	contestIDBits = 48
	// MaxNamespace is the largest namespace Key accepts.
	MaxNamespace = 1<<(63-contestIDBits) - 1
	// MaxContestID is the largest contest id Key accepts.
	MaxContestID = 1<<contestIDBits - 1
)

var ErrKeyOutOfRange = errors.New("advisory lock key out of range")

// Key packs a namespace and a contest id into one bigint advisory lock key:
// the namespace takes the high bits, the contest id the low 48. Distinct
// pairs within range never share a key. The namespace separates this
// engine's locks from other users of the same database.
func Key(namespace int32, contestID int64) (int64, error) {
	if namespace < 0 || namespace > MaxNamespace {
		return 0, fmt.Errorf("%w: namespace %d", ErrKeyOutOfRange, namespace)
	}
	if contestID < 0 || contestID > MaxContestID {
		return 0, fmt.Errorf("%w: contest %d", ErrKeyOutOfRange, contestID)
	}
	return int64(namespace)<<contestIDBits | contestID, nil
}

// TryContest attempts pg_try_advisory_xact_lock for a contest. The lock is
// released when the surrounding transaction ends, so db must be a bun.Tx for
// the lock to outlive this statement.
func TryContest(ctx context.Context, db bun.IDB, namespace int32, contestID int64) (bool, error) {
	key, err := Key(namespace, contestID)
	if err != nil {
		return false, err
	}
	var ok bool
	err = db.NewRaw("SELECT pg_try_advisory_xact_lock(CAST(? AS bigint))", key).
		Scan(ctx, &ok)
	if err != nil {
		return false, fmt.Errorf("advisory lock for contest %d: %w", contestID, err)
	}
	return ok, nil
}
