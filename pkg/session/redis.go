package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	prefKeyPrefix    = "user_pref:"
)

// RedisStore keeps sessions and preferences in Redis with per-key TTLs.
// Session writes use optimistic locking over WATCH/MULTI/EXEC so that
// concurrent turns for the same session cannot silently overwrite each
// other.
type RedisStore struct {
	client     *redis.Client
	sessionTTL time.Duration
	prefTTL    time.Duration
}

func NewRedisStore(client *redis.Client, sessionTTL, prefTTL time.Duration) *RedisStore {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	if prefTTL <= 0 {
		prefTTL = 24 * time.Hour
	}
	return &RedisStore{client: client, sessionTTL: sessionTTL, prefTTL: prefTTL}
}

func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	now := time.Now()
	sess.CreatedAt = now
	sess.LastActivity = now
	sess.Version = 1

	val, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+sess.ID, val, s.sessionTTL).Err()
}

// Get refreshes the key's TTL on every read; an active conversation never
// expires mid-exchange.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	key := sessionKeyPrefix + id
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, err
	}

	// TTL refresh failure is not worth failing the read for.
	_ = s.client.Expire(ctx, key, s.sessionTTL).Err()

	return &sess, nil
}

func (s *RedisStore) Update(ctx context.Context, sess *Session) error {
	key := sessionKeyPrefix + sess.ID

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var stored Session
		if err := json.Unmarshal([]byte(val), &stored); err != nil {
			return err
		}
		if stored.Version != sess.Version {
			return ErrVersionConflict
		}

		sess.Version++
		sess.LastActivity = time.Now()

		newVal, err := json.Marshal(sess)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.sessionTTL)
			return nil
		})
		return err
	}, key)

	return translateWatchErr(err)
}

// translateWatchErr maps an aborted WATCH transaction onto the store's
// conflict error. EXEC failing because the key changed underneath is the
// same lost race as a version mismatch, and callers retry it the same way.
func translateWatchErr(err error) error {
	if err == redis.TxFailedErr {
		return ErrVersionConflict
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

func (s *RedisStore) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	val, err := s.client.Get(ctx, prefKeyPrefix+userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p Preferences
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *RedisStore) SavePreferences(ctx context.Context, userID string, p *Preferences) error {
	p.UpdatedAt = time.Now()
	val, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, prefKeyPrefix+userID, val, s.prefTTL).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
