package memory

import (
	"context"
	"fmt"
	"sync"

	"calorie-tracker/core"

	"github.com/sirupsen/logrus"
)

// memStore keeps values in process memory. A non-zero quota caps the total
// number of bytes held, the way browser storage refuses oversized writes.
type memStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	quota  int
}

// NewStore creates a new in-memory store without a quota.
func NewStore() *memStore {
	return NewStoreWithQuota(0)
}

// NewStoreWithQuota creates an in-memory store holding at most quota bytes
// across all keys. A quota of 0 disables the limit.
func NewStoreWithQuota(quota int) *memStore {
	return &memStore{
		values: make(map[string][]byte),
		quota:  quota,
	}
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithField("key", key)
	val, ok := s.values[key]
	if !ok {
		log.Debug("Key not present in memory store")
		return nil, fmt.Errorf("key %s: %w", key, core.ErrKeyNotFound)
	}

	out := make([]byte, len(val))
	copy(out, val)
	log.WithField("data_length", len(out)).Debug("Value retrieved successfully")
	return out, nil
}

func (s *memStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(value),
	})

	if s.quota > 0 {
		used := len(value)
		for k, v := range s.values {
			if k != key {
				used += len(v)
			}
		}
		if used > s.quota {
			log.WithField("quota", s.quota).Warn("Write rejected by quota")
			return fmt.Errorf("key %s needs %d of %d bytes: %w", key, used, s.quota, core.ErrQuotaExceeded)
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	log.Debug("Value saved successfully")
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	logrus.WithField("key", key).Debug("Value deleted")
	return nil
}
