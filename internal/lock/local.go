package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type localEntry struct {
	token   string
	expires time.Time
}

// LocalLocker implements Locker in process memory, for single-instance deployments.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]localEntry
	now     func() time.Time
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{entries: make(map[string]localEntry), now: time.Now}
}

func (l *LocalLocker) TryAcquire(_ context.Context, name string, ttl time.Duration) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.entries[name]; ok && now.Before(entry.expires) {
		return nil, nil
	}
	token := uuid.NewString()
	l.entries[name] = localEntry{token: token, expires: now.Add(ttl)}
	return &Lease{Name: name, token: token, release: l.release}, nil
}

func (l *LocalLocker) release(_ context.Context, name, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[name]
	if !ok || entry.token != token || !l.now().Before(entry.expires) {
		return ErrNotHeld
	}
	delete(l.entries, name)
	return nil
}
