// Package lock provides an advisory lock per clone destination, so two
// treeclone processes never write the same destination at once.
//
// A lock is a small JSON file created with O_EXCL in a shared lock
// directory. Each lease carries a holder nonce and a fencing token; a lease
// that outlives its TTL may be taken over, which bumps the token.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/jvs-project/treeclone/pkg/errclass"
	"github.com/jvs-project/treeclone/pkg/fsutil"
	"github.com/jvs-project/treeclone/pkg/model"
)

// DefaultDir is the lock directory used when none is configured.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "treeclone-locks")
}

// Manager handles destination lock operations.
type Manager struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
	now func() time.Time
	mu  sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a lock manager keeping lock files in dir on fs.
func NewManager(fs afero.Fs, dir string, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{fs: fs, dir: dir, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Acquire takes the lock on destination. An expired lease held by someone
// else is taken over with the next fencing token.
func (m *Manager) Acquire(destination, purpose string) (*model.LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fs.MkdirAll(m.dir, 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	lockPath := m.lockPath(destination)
	file, err := m.fs.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock: %w", err)
		}
		rec, readErr := m.readLock(lockPath)
		if readErr != nil {
			return nil, fmt.Errorf("read existing lock: %w", readErr)
		}
		if !rec.IsExpired(m.now()) {
			return nil, errclass.ErrLockConflict.WithMessagef(
				"destination %s is locked until %s (%s)", destination, rec.ExpiresAt.Format(time.RFC3339), rec.Purpose)
		}
		return m.takeOver(lockPath, destination, purpose, rec)
	}
	defer file.Close()

	rec := m.newRecord(destination, purpose, 1)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		m.fs.Remove(lockPath)
		return nil, fmt.Errorf("marshal lock: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		m.fs.Remove(lockPath)
		return nil, fmt.Errorf("write lock: %w", err)
	}
	if err := file.Sync(); err != nil {
		m.fs.Remove(lockPath)
		return nil, fmt.Errorf("sync lock: %w", err)
	}
	return rec, nil
}

func (m *Manager) takeOver(lockPath, destination, purpose string, prev *model.LockRecord) (*model.LockRecord, error) {
	rec := m.newRecord(destination, purpose, prev.FencingToken+1)
	if err := m.updateLock(lockPath, rec); err != nil {
		return nil, fmt.Errorf("take over lock: %w", err)
	}
	return rec, nil
}

func (m *Manager) newRecord(destination, purpose string, token int64) *model.LockRecord {
	now := m.now().UTC()
	return &model.LockRecord{
		Destination:  destination,
		HolderNonce:  uuid.NewString(),
		AcquiredAt:   now,
		ExpiresAt:    now.Add(m.ttl),
		FencingToken: token,
		Purpose:      purpose,
	}
}

// Renew extends the lease on a lock the caller holds.
func (m *Manager) Renew(destination, holderNonce string) (*model.LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lockPath := m.lockPath(destination)
	rec, err := m.readLock(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errclass.ErrLockNotHeld.WithMessage("no lock held")
		}
		return nil, fmt.Errorf("read lock: %w", err)
	}
	if rec.HolderNonce != holderNonce {
		return nil, errclass.ErrLockNotHeld.WithMessage("nonce mismatch")
	}
	if rec.IsExpired(m.now()) {
		return nil, errclass.ErrLockNotHeld.WithMessage("lock has expired")
	}

	rec.ExpiresAt = m.now().UTC().Add(m.ttl)
	if err := m.updateLock(lockPath, rec); err != nil {
		return nil, fmt.Errorf("update lock: %w", err)
	}
	return rec, nil
}

// Release frees the lock. Releasing a lock that is already gone is not an error.
func (m *Manager) Release(destination, holderNonce string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lockPath := m.lockPath(destination)
	rec, err := m.readLock(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read lock: %w", err)
	}
	if rec.HolderNonce != holderNonce {
		return errclass.ErrLockNotHeld.WithMessage("cannot release: nonce mismatch")
	}
	if err := m.fs.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock: %w", err)
	}
	return nil
}

// ValidateFencing checks that token is still the current one for destination.
func (m *Manager) ValidateFencing(destination string, token int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.readLock(m.lockPath(destination))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errclass.ErrLockNotHeld.WithMessage("no lock held")
		}
		return fmt.Errorf("read lock: %w", err)
	}
	if rec.FencingToken != token {
		return errclass.ErrLockNotHeld.WithMessagef("fencing token is %d, caller has %d", rec.FencingToken, token)
	}
	return nil
}

// Status returns the current lock state.
func (m *Manager) Status(destination string) (model.LockState, *model.LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.readLock(m.lockPath(destination))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.LockStateFree, nil, nil
		}
		return model.LockStateFree, nil, fmt.Errorf("read lock: %w", err)
	}
	if rec.IsExpired(m.now()) {
		return model.LockStateExpired, rec, nil
	}
	return model.LockStateHeld, rec, nil
}

// lockPath hashes the destination so any path spelling yields a flat file name.
func (m *Manager) lockPath(destination string) string {
	sum := sha256.Sum256([]byte(destination))
	return filepath.Join(m.dir, hex.EncodeToString(sum[:12])+".lock")
}

func (m *Manager) readLock(path string) (*model.LockRecord, error) {
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return nil, err
	}
	var rec model.LockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse lock: %w", err)
	}
	return &rec, nil
}

func (m *Manager) updateLock(path string, rec *model.LockRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}
	return fsutil.AtomicWrite(m.fs, path, data, 0644)
}

// List returns every lock record in the lock directory. Unreadable lock
// files are skipped.
func (m *Manager) List() ([]*model.LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches, err := afero.Glob(m.fs, filepath.Join(m.dir, "*.lock"))
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	var out []*model.LockRecord
	for _, path := range matches {
		rec, err := m.readLock(path)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Prune removes every expired lock and returns how many it removed.
func (m *Manager) Prune() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches, err := afero.Glob(m.fs, filepath.Join(m.dir, "*.lock"))
	if err != nil {
		return 0, fmt.Errorf("list locks: %w", err)
	}
	removed := 0
	for _, path := range matches {
		rec, err := m.readLock(path)
		if err != nil || !rec.IsExpired(m.now()) {
			continue
		}
		if err := m.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove lock: %w", err)
		}
		removed++
	}
	return removed, nil
}
