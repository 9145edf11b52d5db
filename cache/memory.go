package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-process Store guarded by a mutex. It backs tests and
// single-node development setups where no redis is running. Expiry is
// checked lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	value     string
	list      []string
	isList    bool
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]*memoryEntry{}}
}

// live returns the entry for key if present and not expired, pruning it
// otherwise. Callers must hold the mutex.
func (s *MemoryStore) live(key string) *memoryEntry {
	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	if entry.expired(time.Now()) {
		delete(s.entries, key)
		return nil
	}
	return entry
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil || entry.isList {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := &memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key) != nil, nil
}

func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.add(key, 1)
}

func (s *MemoryStore) Decr(ctx context.Context, key string) (int64, error) {
	return s.add(key, -1)
}

func (s *MemoryStore) add(key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		entry = &memoryEntry{value: "0"}
		s.entries[key] = entry
	}
	n, err := strconv.ParseInt(entry.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n += delta
	entry.value = strconv.FormatInt(n, 10)
	return n, nil
}

func (s *MemoryStore) LPush(ctx context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		entry = &memoryEntry{isList: true}
		s.entries[key] = entry
	}
	// LPush prepends values one at a time, so the last value ends up first.
	for _, v := range values {
		entry.list = append([]string{v}, entry.list...)
	}
	return nil
}

func (s *MemoryStore) RPush(ctx context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		entry = &memoryEntry{isList: true}
		s.entries[key] = entry
	}
	entry.list = append(entry.list, values...)
	return nil
}

func (s *MemoryStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return nil
	}
	entry.list = rangeSlice(entry.list, start, stop)
	return nil
}

func (s *MemoryStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return []string{}, nil
	}
	out := rangeSlice(entry.list, start, stop)
	result := make([]string, len(out))
	copy(result, out)
	return result, nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry := s.live(key); entry != nil {
		entry.expiresAt = time.Now().Add(ttl)
	}
	return nil
}

// rangeSlice applies redis LRANGE/LTRIM index semantics, where negative
// indexes count from the end and stop is inclusive.
func rangeSlice(list []string, start, stop int64) []string {
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return []string{}
	}
	return list[start : stop+1]
}
