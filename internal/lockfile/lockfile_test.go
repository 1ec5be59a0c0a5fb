package lockfile_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/calvinalkan/bead/internal/lockfile"
)

// Contract: a second acquirer times out while the first holds the lock, and succeeds after release.
func Test_Acquire_Times_Out_When_Lock_Is_Held(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "env.json")

	first, err := lockfile.Acquire(path, time.Second)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	_, err = lockfile.Acquire(path, 50*time.Millisecond)
	if !errors.Is(err, lockfile.ErrLockTimeout) {
		t.Fatalf("second acquire err=%v, want ErrLockTimeout", err)
	}

	first.Release()
	first.Release()

	again, err := lockfile.Acquire(path, time.Second)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}

	again.Release()
}

func Test_With_Propagates_Callback_Error(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "env.json")
	sentinel := errors.New("boom")

	err := lockfile.With(path, func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("err=%v, want sentinel", err)
	}

	ran := false

	err = lockfile.With(path, func() error {
		ran = true

		return nil
	})
	if err != nil || !ran {
		t.Fatalf("err=%v ran=%v, want nil/true", err, ran)
	}
}
