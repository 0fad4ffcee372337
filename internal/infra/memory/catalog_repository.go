package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"escape-trail/internal/catalog"
	"escape-trail/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches catalog content from a backing store (file, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, catalogID string) (*catalog.Catalog, error)
}

// CatalogRepository caches validated catalogs with a TTL so sessions do not
// reload and revalidate on every start.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedCatalog
}

type cachedCatalog struct {
	catalog   *catalog.Catalog
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCatalog),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context, catalogID string) (*catalog.Catalog, error) {
	if cat, ok := r.lookup(catalogID); ok {
		return cat, nil
	}

	result, err, _ := r.sf.Do(catalogID, func() (interface{}, error) {
		if cat, ok := r.lookup(catalogID); ok {
			return cat, nil
		}

		cat, err := r.loader.LoadCatalog(ctx, catalogID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[catalogID] = cachedCatalog{
			catalog:   cat,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*catalog.Catalog), nil
}

func (r *CatalogRepository) lookup(catalogID string) (*catalog.Catalog, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[catalogID]; ok && entry.expiresAt.After(now) {
		return entry.catalog, true
	}
	return nil, false
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCatalogLoader serves catalogs already in memory (built-in or loaded from files).
type StaticCatalogLoader struct {
	catalogs map[string]*catalog.Catalog
}

func NewStaticCatalogLoader(catalogs ...*catalog.Catalog) *StaticCatalogLoader {
	byID := make(map[string]*catalog.Catalog, len(catalogs))
	for _, c := range catalogs {
		byID[c.ID()] = c
	}
	return &StaticCatalogLoader{catalogs: byID}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context, catalogID string) (*catalog.Catalog, error) {
	if cat, ok := l.catalogs[catalogID]; ok {
		return cat, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, catalogID)
}
