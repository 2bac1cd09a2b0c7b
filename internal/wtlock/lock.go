// Package wtlock provides the exclusive worktree lock the mutation
// engine's transaction template (spec §4.4 step 1, "lock") acquires
// before projecting state and releases on every exit path, including a
// panic mid-mutation.
package wtlock

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// pollInterval is how often Acquire retries the lock while waiting.
const pollInterval = 25 * time.Millisecond

// Lock guards a single repository's worktree against concurrent
// mutation-engine transactions, whether from this process or another.
type Lock struct {
	fl *flock.Flock
}

// Open returns a Lock for the repository rooted at gitDir. It does not
// acquire the lock; call Acquire for that.
func Open(gitDir string) *Lock {
	return &Lock{fl: flock.New(filepath.Join(gitDir, "gitbutler", ".worktree.lock"))}
}

// Acquire blocks until the lock is held or ctx is done, returning a
// release function the caller must defer immediately:
//
//	release, err := lock.Acquire(ctx)
//	if err != nil { return err }
//	defer release()
func (l *Lock) Acquire(ctx context.Context) (release func(), err error) {
	locked, err := l.fl.TryLockContext(ctx, pollInterval)
	if err != nil {
		return nil, fmt.Errorf("acquire worktree lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire worktree lock: %w", ctx.Err())
	}
	return func() {
		_ = l.fl.Unlock()
	}, nil
}

// TryAcquire attempts a non-blocking lock, reporting ok=false if
// another transaction currently holds it.
func (l *Lock) TryAcquire() (release func(), ok bool, err error) {
	locked, err := l.fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("try worktree lock: %w", err)
	}
	if !locked {
		return nil, false, nil
	}
	return func() { _ = l.fl.Unlock() }, true, nil
}
