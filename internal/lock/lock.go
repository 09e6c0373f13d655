// Package lock provides a cross-process advisory file lock for
// read-modify-write operations that must serialize across separate grove
// invocations.
package lock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Acquire takes an exclusive lock on path, blocking until it is held.
// Returns a release function.
func Acquire(path string) (func(), error) {
	fileLock := flock.New(path)
	if err := fileLock.Lock(); err != nil {
		return nil, fmt.Errorf("acquiring flock: %w", err)
	}
	return func() {
		_ = fileLock.Unlock()
	}, nil
}
