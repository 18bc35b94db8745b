package redis

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"classroom-sim-service/internal/app"
	"classroom-sim-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// StateStore keeps classroom blobs in Redis.
// With a backing store it is a write-through, read-through cache whose entries
// expire after ttl (plus jitter); without one Redis is the store of record and
// entries never expire.
// Blobs are stored as: SET classroom:{classroomID}:state:{key} {json}
type StateStore struct {
	client  *redis.Client
	backing app.StateStore
	ttl     time.Duration
	sf      singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewStateStore(client *redis.Client, backing app.StateStore, ttl time.Duration) *StateStore {
	return &StateStore{
		client:  client,
		backing: backing,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *StateStore) Load(ctx context.Context, classroomID, key string) ([]byte, error) {
	redisKey := s.key(classroomID, key)

	data, err := s.client.Get(ctx, redisKey).Bytes()
	if err == nil {
		return data, nil
	}
	if s.backing == nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", redisKey, err)
	}

	result, err, _ := s.sf.Do(redisKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if data, err := s.client.Get(ctx, redisKey).Bytes(); err == nil {
			return data, nil
		}

		data, err := s.backing.Load(ctx, classroomID, key)
		if err != nil {
			return nil, err
		}
		_ = s.client.Set(ctx, redisKey, data, s.ttlWithJitter()).Err()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (s *StateStore) Save(ctx context.Context, classroomID, key string, data []byte) error {
	if s.backing != nil {
		if err := s.backing.Save(ctx, classroomID, key, data); err != nil {
			return err
		}
	}
	redisKey := s.key(classroomID, key)
	if err := s.client.Set(ctx, redisKey, data, s.ttlWithJitter()).Err(); err != nil {
		if s.backing != nil {
			// the durable copy is written; a stale cache entry would outlive it
			_ = s.client.Del(ctx, redisKey).Err()
			return nil
		}
		return fmt.Errorf("redis set %s: %w", redisKey, err)
	}
	return nil
}

func (s *StateStore) key(classroomID, key string) string {
	return "classroom:" + classroomID + ":state:" + key
}

// ttlWithJitter returns 0 (no expiry) when Redis is the store of record.
func (s *StateStore) ttlWithJitter() time.Duration {
	if s.backing == nil || s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
