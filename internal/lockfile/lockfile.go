// Package lockfile guards wholesale file rewrites with an advisory flock(2)
// on a sibling ".lock" file. It is Unix-only.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultTimeout is how long [With] waits for a held lock.
const DefaultTimeout = 5 * time.Second

const (
	retryInterval = 10 * time.Millisecond
	lockFilePerms = 0o600
)

// Lock errors.
var (
	ErrLockTimeout  = errors.New("lock timeout")
	errLockFileOpen = errors.New("failed to open lock file")
)

// Lock is a held exclusive lock. Call [Lock.Release] to drop it.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes an exclusive lock on path+".lock", polling until timeout.
// The lock file is created if missing and never removed, so that every
// process locks the same inode.
func Acquire(path string, timeout time.Duration) (*Lock, error) {
	lockPath := path + ".lock"

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, lockFilePerms) //nolint:gosec // path is from caller
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLockFileOpen, err)
	}

	deadline := time.Now().Add(timeout)

	for {
		flockErr := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if flockErr == nil {
			return &Lock{path: lockPath, file: file}, nil
		}

		if !errors.Is(flockErr, unix.EWOULDBLOCK) && !errors.Is(flockErr, unix.EINTR) {
			_ = file.Close()

			return nil, fmt.Errorf("flock %s: %w", lockPath, flockErr)
		}

		if time.Now().After(deadline) {
			_ = file.Close()

			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}

		time.Sleep(retryInterval)
	}
}

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}

	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}

// With runs fn while holding the lock for path.
func With(path string, fn func() error) error {
	lock, err := Acquire(path, DefaultTimeout)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}

	defer lock.Release()

	return fn()
}
