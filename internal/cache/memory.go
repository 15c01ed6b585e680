// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/pdiddy/sciqa/pkg/types"
)

const (
	defaultMaxEntries = 1000
	defaultTTL        = time.Hour
)

type memEntry struct {
	key     string
	answer  types.Answer
	expires time.Time
}

// Memory is a bounded in-process TTL cache. When full, the oldest
// inserted entry is evicted. Expired entries are dropped on read.
type Memory struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	order      *list.List // front is oldest
	entries    map[string]*list.Element
	now        func() time.Time
}

// NewMemory returns a Memory cache. Non-positive arguments use the
// defaults of 1000 entries and one hour.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Memory{
		maxEntries: maxEntries,
		ttl:        ttl,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
		now:        time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) (types.Answer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return types.Answer{}, false
	}
	e := el.Value.(*memEntry)
	if !m.now().Before(e.expires) {
		m.order.Remove(el)
		delete(m.entries, key)
		return types.Answer{}, false
	}
	return e.answer, true
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, ans types.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		m.order.Remove(el)
		delete(m.entries, key)
	}
	for m.order.Len() >= m.maxEntries {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memEntry).key)
	}
	m.entries[key] = m.order.PushBack(&memEntry{
		key:     key,
		answer:  ans,
		expires: m.now().Add(m.ttl),
	})
	return nil
}

// Len returns the number of stored entries, including expired ones not
// yet read.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
