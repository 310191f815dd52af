package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

type prefEntry struct {
	prefs     *Preferences
	expiresAt time.Time
}

// MemoryStore is the in-process driver with the same TTL and version
// semantics as the Redis driver. Expired entries are dropped lazily on
// read; StartSweeper adds an active sweep on a cron schedule so an idle
// process does not accumulate dead sessions.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*memoryEntry
	prefs      map[string]*prefEntry
	sessionTTL time.Duration
	prefTTL    time.Duration

	sweepCancel context.CancelFunc
}

func NewMemoryStore(sessionTTL, prefTTL time.Duration) *MemoryStore {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	if prefTTL <= 0 {
		prefTTL = 24 * time.Hour
	}
	return &MemoryStore{
		sessions:   make(map[string]*memoryEntry),
		prefs:      make(map[string]*prefEntry),
		sessionTTL: sessionTTL,
		prefTTL:    prefTTL,
	}
}

func (s *MemoryStore) Create(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sess.CreatedAt = now
	sess.LastActivity = now
	sess.Version = 1

	s.sessions[sess.ID] = &memoryEntry{session: sess.clone(), expiresAt: now.Add(s.sessionTTL)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.sessions, id)
		return nil, nil
	}
	// Reads refresh the TTL, same as the Redis driver.
	entry.expiresAt = time.Now().Add(s.sessionTTL)

	return entry.session.clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sess.ID]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.sessions, sess.ID)
		return ErrNotFound
	}
	if entry.session.Version != sess.Version {
		return ErrVersionConflict
	}

	sess.Version++
	sess.LastActivity = time.Now()

	s.sessions[sess.ID] = &memoryEntry{session: sess.clone(), expiresAt: time.Now().Add(s.sessionTTL)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.prefs[userID]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.prefs, userID)
		return nil, nil
	}

	cp := entry.prefs.clone()
	return &cp, nil
}

func (s *MemoryStore) SavePreferences(ctx context.Context, userID string, p *Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.UpdatedAt = time.Now()
	cp := p.clone()
	s.prefs[userID] = &prefEntry{prefs: &cp, expiresAt: time.Now().Add(s.prefTTL)}
	return nil
}

// StartSweeper runs a background sweep of expired entries on a cron
// schedule. Lazy expiry on read remains the contract; the sweeper only
// bounds memory growth for sessions nobody reads again.
func (s *MemoryStore) StartSweeper(ctx context.Context, schedule string) error {
	if !gronx.New().IsValid(schedule) {
		return fmt.Errorf("session: invalid sweep schedule %q", schedule)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.sweepCancel = cancel

	go func() {
		for {
			next, err := gronx.NextTick(schedule, false)
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(next)):
				s.sweep()
			}
		}
	}()
	return nil
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
		}
	}
	for id, entry := range s.prefs {
		if now.After(entry.expiresAt) {
			delete(s.prefs, id)
		}
	}
}

func (s *MemoryStore) Close() error {
	if s.sweepCancel != nil {
		s.sweepCancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	s.prefs = nil
	return nil
}
