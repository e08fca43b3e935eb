package services

import (
	"sync"
	"time"
)

// fakeClock 测试用可拨动时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t.In(BeijingZone)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.In(BeijingZone)
}

type fakeEntry struct {
	value    []byte
	expireAt time.Time // 零值表示永不过期
}

// fakeKVStore 内存键值存储，实现InterfaceKVStore
type fakeKVStore struct {
	mu     sync.Mutex
	clock  InterfaceClock
	tables map[string]map[string]fakeEntry
}

func newFakeKVStore(clock InterfaceClock) *fakeKVStore {
	return &fakeKVStore{
		clock:  clock,
		tables: make(map[string]map[string]fakeEntry),
	}
}

func (s *fakeKVStore) Exists(table string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[table]
	return ok, nil
}

func (s *fakeKVStore) Create(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table]; !ok {
		s.tables[table] = make(map[string]fakeEntry)
	}
	return nil
}

func (s *fakeKVStore) Get(table, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.tables[table]
	if !ok {
		return nil, ErrKeyNotFound
	}
	entry, ok := entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	if !entry.expireAt.IsZero() && s.clock.Now().After(entry.expireAt) {
		delete(entries, key)
		return nil, ErrKeyNotFound
	}
	return entry.value, nil
}

func (s *fakeKVStore) Set(table, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.tables[table]
	if !ok {
		entries = make(map[string]fakeEntry)
		s.tables[table] = entries
	}
	entry := fakeEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expireAt = s.clock.Now().Add(ttl)
	}
	entries[key] = entry
	return nil
}

func (s *fakeKVStore) Delete(table, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entries, ok := s.tables[table]; ok {
		delete(entries, key)
	}
	return nil
}

func (s *fakeKVStore) ListTables() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tables := make([]string, 0, len(s.tables))
	for name := range s.tables {
		tables = append(tables, name)
	}
	return tables, nil
}

func (s *fakeKVStore) Close() error {
	return nil
}
