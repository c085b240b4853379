// Package runlock keeps two uploads of the same source tree from running at
// once. It guards the current run only; nothing about past runs is kept.
package runlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another upload of this directory is already running")

// Lock is a held run lock.
type Lock struct {
	source string
	lock   *flock.Flock
}

// Path returns the lock file name for sourceDir under lockDir.
func Path(lockDir, sourceDir string) (string, error) {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", sourceDir, err)
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(lockDir, "upload-"+hex.EncodeToString(sum[:8])+".lock"), nil
}

// Acquire takes the lock for sourceDir without blocking.
func Acquire(lockDir, sourceDir string) (*Lock, error) {
	path, err := Path(lockDir, sourceDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, sourceDir)
	}
	return &Lock{source: sourceDir, lock: fl}, nil
}

// File returns the lock file path.
func (l *Lock) File() string {
	return l.lock.Path()
}

// Release unlocks. It is safe to call on a nil Lock and more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock for %s: %w", l.source, err)
	}
	return nil
}
