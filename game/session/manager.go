package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/wricardo/ludo-engine/game/engine"
)

// DefaultFlushAttempts is how many times a flush is tried before the
// failure is reported to the caller.
const DefaultFlushAttempts = 3

// Manager is the session registry. mu guards only the shape of the
// sessions map and is never held while a turn is resolved or while the
// store is written. flushMu serializes flushes so a newer table is never
// overwritten by an older one.
type Manager struct {
	rules  engine.Rules
	store  Store
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	flushMu       sync.Mutex
	flushAttempts int
	flushBackoff  backoff.Backoff

	now func() time.Time
}

// NewManager creates an in-memory session registry
func NewManager(rules engine.Rules, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		rules:         rules,
		logger:        logger,
		sessions:      make(map[string]*Session),
		flushAttempts: DefaultFlushAttempts,
		flushBackoff: backoff.Backoff{
			Min:    10 * time.Millisecond,
			Max:    250 * time.Millisecond,
			Factor: 2,
		},
		now: time.Now,
	}
}

// NewManagerWithPersistence creates a session registry that flushes the
// whole session table to store after every mutation
func NewManagerWithPersistence(rules engine.Rules, store Store, logger *zap.Logger) *Manager {
	m := NewManager(rules, logger)
	m.store = store
	return m
}

// Rules returns the board rules shared by every session
func (m *Manager) Rules() engine.Rules {
	return m.rules
}

// Create registers an empty session for id. An existing session that has
// not started is replaced; a started one is reported as ErrAlreadyActive.
// An empty id gets a generated one.
func (m *Manager) Create(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = m.generateSessionID()
	}

	for {
		m.mu.Lock()
		existing, ok := m.sessions[id]
		if !ok {
			sess := m.newEmptySession(id)
			m.sessions[id] = sess
			m.mu.Unlock()
			m.logger.Info("session created", zap.String("session_id", id))
			return sess, m.flush(ctx)
		}
		m.mu.Unlock()

		// Session lock before registry lock, as on every deletion path.
		existing.mu.Lock()
		if existing.closed {
			// Removed between the lookup and the lock; look again.
			existing.mu.Unlock()
			continue
		}
		if existing.state.Started {
			existing.mu.Unlock()
			return nil, ErrAlreadyActive
		}

		sess := m.newEmptySession(id)
		m.mu.Lock()
		m.sessions[id] = sess
		existing.closed = true
		m.mu.Unlock()
		existing.mu.Unlock()

		m.logger.Info("session reset", zap.String("session_id", id))
		return sess, m.flush(ctx)
	}
}

// Get retrieves a live session by ID
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Remove drops a session from the registry without flushing. It is
// idempotent and reports whether a live session was removed.
func (m *Manager) Remove(id string) bool {
	sess, err := m.Get(id)
	if err != nil {
		return false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return false
	}
	sess.closeLocked()
	return true
}

// End removes a session and flushes. Ending a missing session is not an error.
func (m *Manager) End(ctx context.Context, id string) (bool, error) {
	if !m.Remove(id) {
		return false, nil
	}
	m.logger.Info("session ended", zap.String("session_id", id))
	return true, m.flush(ctx)
}

// List returns snapshots of all live sessions ordered by ID
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	result := make([]Snapshot, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess.published.Load().Clone())
	}
	m.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Flush writes the current session table to the store
func (m *Manager) Flush(ctx context.Context) error {
	return m.flush(ctx)
}

// CleanupExpiredSessions removes sessions that have not changed within maxAge
func (m *Manager) CleanupExpiredSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	m.mu.Lock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		candidates = append(candidates, sess)
	}
	m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for _, sess := range candidates {
		sess.mu.Lock()
		if !sess.closed && sess.updatedAt.Before(cutoff) {
			sess.closeLocked()
			removed++
			m.logger.Info("session expired", zap.String("session_id", sess.id), zap.Time("updated_at", sess.updatedAt))
		}
		sess.mu.Unlock()
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, m.flush(ctx)
}

// LoadPersistedSessions reconstructs the registry from the store. Records
// that fail the state invariants are skipped. Sessions already in memory
// are kept.
func (m *Manager) LoadPersistedSessions(ctx context.Context) (int, error) {
	if m.store == nil {
		return 0, nil // No persistence configured
	}

	snapshots, err := m.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for id, snap := range snapshots {
		if _, exists := m.sessions[id]; exists {
			continue
		}

		state := snap.State
		state.Normalize()
		if err := state.Validate(m.rules); err != nil {
			m.logger.Warn("skipping persisted session", zap.String("session_id", id), zap.Error(err))
			continue
		}

		now := m.now()
		createdAt, updatedAt := snap.CreatedAt, snap.UpdatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if updatedAt.IsZero() {
			updatedAt = now
		}

		m.sessions[id] = newSession(m, id, state, createdAt, updatedAt)
		loaded++
	}

	if loaded > 0 {
		m.logger.Info("loaded persisted sessions", zap.Int("count", loaded))
	}
	return loaded, nil
}

// Close releases the store
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

// flush collects every published snapshot and saves the table, retrying
// with backoff before giving up.
func (m *Manager) flush(ctx context.Context) error {
	if m.store == nil {
		return nil // No persistence configured
	}

	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	m.mu.Lock()
	table := make(map[string]Snapshot, len(m.sessions))
	for id, sess := range m.sessions {
		table[id] = *sess.published.Load()
	}
	m.mu.Unlock()

	b := m.flushBackoff
	b.Reset()

	var err error
	for attempt := 1; ; attempt++ {
		err = m.store.SaveAll(ctx, table)
		if err == nil {
			return nil
		}
		if attempt >= m.flushAttempts || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}

		wait := b.Duration()
		m.logger.Warn("flush failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
		case <-timer.C:
			continue
		}
		break
	}

	m.logger.Error("flush failed", zap.Int("sessions", len(table)), zap.Error(err))
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// detach removes sess from the map if it is still the registered entry.
// Callers hold sess.mu.
func (m *Manager) detach(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.sessions[sess.id]; ok && current == sess {
		delete(m.sessions, sess.id)
	}
}

func (m *Manager) newEmptySession(id string) *Session {
	now := m.now()
	return newSession(m, id, engine.NewState(), now, now)
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	for {
		// Generate 2 random bytes (4 hex characters)
		bytes := make([]byte, 2)
		_, _ = rand.Read(bytes)
		id := hex.EncodeToString(bytes)

		m.mu.Lock()
		_, exists := m.sessions[id]
		m.mu.Unlock()
		if !exists {
			return id
		}
	}
}
