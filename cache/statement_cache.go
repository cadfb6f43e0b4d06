package cache

import (
	"context"
	"database/sql"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStatementCacheSize is used when a non-positive size is configured.
const DefaultStatementCacheSize = 256

// Preparer is satisfied by *sql.DB.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// StatementCache keeps prepared statements keyed by query fingerprint.
// Evicted statements are closed; database/sql defers the close until rows
// still reading from them are released.
type StatementCache struct {
	cache *lru.Cache[uint64, *sql.Stmt]
	mu    sync.RWMutex
}

func NewStatementCache(size int) *StatementCache {
	if size <= 0 {
		size = DefaultStatementCacheSize
	}
	cache, _ := lru.NewWithEvict(size, func(key uint64, stmt *sql.Stmt) {
		_ = stmt.Close()
	})

	return &StatementCache{
		cache: cache,
	}
}

func (s *StatementCache) Get(key uint64) (*sql.Stmt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cache.Get(key)
}

func (s *StatementCache) GetOrPrepare(ctx context.Context, key uint64, db Preparer, query string) (*sql.Stmt, error) {
	s.mu.RLock()
	if stmt, ok := s.cache.Get(key); ok {
		s.mu.RUnlock()
		return stmt, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have prepared it while we waited for the lock.
	if stmt, ok := s.cache.Get(key); ok {
		return stmt, nil
	}

	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, stmt)
	return stmt, nil
}

// RemoveIf drops the entry for key only while it still holds stmt, so a
// statement prepared again by another caller survives.
func (s *StatementCache) RemoveIf(key uint64, stmt *sql.Stmt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache.Peek(key); ok && cached == stmt {
		s.cache.Remove(key)
	}
}

func (s *StatementCache) Len() int {
	return s.cache.Len()
}

func (s *StatementCache) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Purge() // closes every statement through the evict callback
	return nil
}
