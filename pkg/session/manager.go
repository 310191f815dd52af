package session

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trendora/assistant/pkg/logger"
)

const maxUpdateRetries = 3

// Manager wraps a Store with the conversation-level policies: expiry as
// absence, bounded history, retried optimistic writes, and preference
// learning. Store failures never surface to the caller; the conversation
// degrades to stateless instead of dying.
type Manager struct {
	store        Store
	ttl          time.Duration
	historyLimit int
}

func NewManager(store Store, ttl time.Duration, historyLimit int) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Manager{store: store, ttl: ttl, historyLimit: historyLimit}
}

// Touch returns the live session for sessionID, creating a fresh one when
// the ID is empty, unknown, or expired. An expired session is deleted, not
// resumed. On store failure the returned session is ephemeral (Version 0)
// and later writes for it are dropped.
func (m *Manager) Touch(ctx context.Context, sessionID, userID string) *Session {
	if sessionID != "" {
		sess, err := m.store.Get(ctx, sessionID)
		if err != nil {
			logger.WarnCF("session", "store read failed, continuing stateless",
				map[string]interface{}{"session_id": sessionID, "error": err.Error()})
			return m.ephemeral(sessionID, userID)
		}
		if sess != nil {
			if time.Since(sess.LastActivity) > m.ttl {
				_ = m.store.Delete(ctx, sessionID)
			} else {
				return sess
			}
		}
	}

	sess := &Session{
		ID:          sessionID,
		UserID:      userID,
		Preferences: DefaultPreferences(),
		Scratch:     map[string]string{},
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if err := m.store.Create(ctx, sess); err != nil {
		logger.WarnCF("session", "store create failed, continuing stateless",
			map[string]interface{}{"session_id": sess.ID, "error": err.Error()})
		return m.ephemeral(sess.ID, userID)
	}
	return sess
}

func (m *Manager) ephemeral(sessionID, userID string) *Session {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now()
	return &Session{
		ID:           sessionID,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		Preferences:  DefaultPreferences(),
		Scratch:      map[string]string{},
	}
}

// AppendTurn records one exchange, capping history at the configured
// limit (oldest turns dropped first).
func (m *Manager) AppendTurn(ctx context.Context, sessionID string, turn Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	m.mutate(ctx, sessionID, func(s *Session) {
		s.History = append(s.History, turn)
		if len(s.History) > m.historyLimit {
			s.History = s.History[len(s.History)-m.historyLimit:]
		}
	})
}

func (m *Manager) SetTopic(ctx context.Context, sessionID, topic string) {
	m.mutate(ctx, sessionID, func(s *Session) {
		s.CurrentTopic = topic
	})
}

func (m *Manager) AddPendingQuestion(ctx context.Context, sessionID, question string) {
	m.mutate(ctx, sessionID, func(s *Session) {
		for _, q := range s.PendingQuestions {
			if q == question {
				return
			}
		}
		s.PendingQuestions = append(s.PendingQuestions, question)
	})
}

func (m *Manager) ClearPendingQuestions(ctx context.Context, sessionID string) {
	m.mutate(ctx, sessionID, func(s *Session) {
		s.PendingQuestions = nil
	})
}

func (m *Manager) SetScratch(ctx context.Context, sessionID, key, value string) {
	m.mutate(ctx, sessionID, func(s *Session) {
		if s.Scratch == nil {
			s.Scratch = map[string]string{}
		}
		s.Scratch[key] = value
	})
}

// mutate is a read-modify-write with bounded retry: a version conflict
// means another turn for the same session won the race, so re-read and
// re-apply.
func (m *Manager) mutate(ctx context.Context, sessionID string, fn func(*Session)) {
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		sess, err := m.store.Get(ctx, sessionID)
		if err != nil || sess == nil {
			return
		}
		fn(sess)
		err = m.store.Update(ctx, sess)
		if err == nil {
			return
		}
		if err != ErrVersionConflict {
			logger.WarnCF("session", "store update failed, dropping write",
				map[string]interface{}{"session_id": sessionID, "error": err.Error()})
			return
		}
	}
	logger.WarnCF("session", "update retries exhausted, dropping write",
		map[string]interface{}{"session_id": sessionID})
}

// Preferences returns the shopper's saved preferences, or the defaults
// when none exist or the store is down.
func (m *Manager) Preferences(ctx context.Context, userID string) Preferences {
	if userID == "" {
		return DefaultPreferences()
	}
	p, err := m.store.GetPreferences(ctx, userID)
	if err != nil {
		logger.WarnCF("session", "preference read failed, using defaults",
			map[string]interface{}{"user_id": userID, "error": err.Error()})
		return DefaultPreferences()
	}
	if p == nil {
		return DefaultPreferences()
	}
	return *p
}

// LearnPreferences unions entity values extracted from the current
// message into the shopper's saved preferences. This is the only
// preference write path; saving also refreshes the preference TTL.
func (m *Manager) LearnPreferences(ctx context.Context, userID string, entities map[string][]string) {
	if userID == "" || len(entities) == 0 {
		return
	}

	p := m.Preferences(ctx, userID)

	p.Categories = unionSet(p.Categories, entities["product_type"])
	p.Brands = unionSet(p.Brands, entities["brand"])
	p.Sizes = unionSet(p.Sizes, entities["size"])
	p.Colors = unionSet(p.Colors, entities["color"])
	if vals := entities["price_range"]; len(vals) > 0 {
		if pr, ok := parsePriceRange(vals[0]); ok {
			p.PriceRange = pr
		}
	}

	if err := m.store.SavePreferences(ctx, userID, &p); err != nil {
		logger.WarnCF("session", "preference write failed",
			map[string]interface{}{"user_id": userID, "error": err.Error()})
	}
}

// unionSet appends values not already present, preserving order. Existing
// entries are never removed; preferences only accumulate until their TTL
// drops the whole record.
func unionSet(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range incoming {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		existing = append(existing, v)
	}
	return existing
}

var priceNumbers = regexp.MustCompile(`\d+`)

// parsePriceRange maps a price entity like "under 500000", "over 200000",
// "from 200000 to 300000" or a bare amount onto a price window. A bare
// amount is read as a budget ceiling.
func parsePriceRange(text string) (PriceRange, bool) {
	nums := priceNumbers.FindAllString(text, -1)
	if len(nums) == 0 {
		return PriceRange{}, false
	}

	first, err := strconv.Atoi(nums[0])
	if err != nil {
		return PriceRange{}, false
	}

	if len(nums) >= 2 {
		second, err := strconv.Atoi(nums[1])
		if err != nil {
			return PriceRange{}, false
		}
		lo, hi := first, second
		if lo > hi {
			lo, hi = hi, lo
		}
		return PriceRange{Min: lo, Max: hi}, true
	}

	switch {
	case strings.Contains(text, "over") || strings.Contains(text, "above") ||
		strings.Contains(text, "more than") || strings.Contains(text, "at least"):
		return PriceRange{Min: first, Max: DefaultPreferences().PriceRange.Max}, true
	default:
		return PriceRange{Min: 0, Max: first}, true
	}
}
