// Package syncfs guards the sync root against concurrent runs with an
// exclusive advisory lock file, since the sidecar state file is the only
// synchronization primitive between runs and is not itself safe against
// concurrent writers.
package syncfs

import (
	"context"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/eykd/outlinesync/internal/model"
)

// LockFilename is the reserved filename for the advisory run lock,
// sibling to the sidecar state file.
const LockFilename = ".outline.lock"

const (
	lockRetryInterval = 100 * time.Millisecond
	lockTimeout       = 3 * time.Second
)

// Lock wraps github.com/gofrs/flock for the sync root.
type Lock struct {
	fl *flock.Flock
}

// New returns a Lock for the given sync root.
func New(root string) *Lock {
	return &Lock{fl: flock.New(filepath.Join(root, LockFilename))}
}

// Acquire attempts to take the exclusive lock with bounded retries.
// Failure to acquire (another run is presumably already in progress) is a
// fatal model.IOError.
func (l *Lock) Acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := l.fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return &model.IOError{Path: l.fl.Path(), Err: err}
	}
	if !locked {
		return &model.IOError{Path: l.fl.Path(), Err: context.DeadlineExceeded}
	}
	return nil
}

// Release gives up the lock. Errors are not fatal — the lock file will
// simply be retried by the next run.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
