package schema

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

// DefaultTTL is how long a fetched schema stays valid.
const DefaultTTL = 1 * time.Hour

// CachedProvider wraps a Provider with a TTL cache keyed by data source id.
// Concurrent callers for the same data source share a single fetch; the
// per-key lock is what makes the get-or-set atomic.
type CachedProvider struct {
	inner Provider
	cache *cache.Cache

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

var _ Provider = &CachedProvider{}

func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedProvider{
		inner: inner,
		cache: cache.New(ttl, 10*time.Minute),
		locks: make(map[int]*sync.Mutex),
	}
}

func (p *CachedProvider) GetSchema(ctx context.Context, dataSourceID int) ([]redash.SchemaTable, error) {
	key := strconv.Itoa(dataSourceID)

	if x, found := p.cache.Get(key); found {
		return x.([]redash.SchemaTable), nil
	}

	lock := p.keyLock(dataSourceID)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have populated the entry while we waited.
	if x, found := p.cache.Get(key); found {
		return x.([]redash.SchemaTable), nil
	}

	tables, err := p.inner.GetSchema(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}

	p.cache.Set(key, tables, cache.DefaultExpiration)
	return tables, nil
}

// Invalidate drops the cached schema for one data source.
func (p *CachedProvider) Invalidate(dataSourceID int) {
	p.cache.Delete(strconv.Itoa(dataSourceID))
}

// InvalidateAll drops every cached schema.
func (p *CachedProvider) InvalidateAll() {
	p.cache.Flush()
}

func (p *CachedProvider) keyLock(dataSourceID int) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[dataSourceID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[dataSourceID] = lock
	}
	return lock
}
