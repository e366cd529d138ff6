package store

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the writer lock.
var ErrLocked = errors.New("database is locked by another lineage process")

// WriterLock serializes batch writers on one database file.
type WriterLock struct {
	lock *flock.Flock
}

// LockPath returns the lock file used for a database path
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

// AcquireWriterLock takes the writer lock without blocking.
func AcquireWriterLock(dbPath string) (*WriterLock, error) {
	lock := flock.New(LockPath(dbPath))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &WriterLock{lock: lock}, nil
}

// Release drops the lock
func (l *WriterLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
