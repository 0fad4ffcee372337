package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"escape-trail/internal/catalog"
	"escape-trail/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// CatalogRepository caches catalog documents in Redis and falls back to a
// loader on cache miss. Documents are stored as JSON:
//
//	SET trail:catalog:{catalogID} {document} EX ttl
//
// Cached documents are revalidated on read, so a corrupted entry is reloaded
// instead of reaching a session.
type CatalogRepository struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewCatalogRepository(client *redis.Client, loader memory.CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context, catalogID string) (*catalog.Catalog, error) {
	if cat, ok := r.fromCache(ctx, catalogID); ok {
		return cat, nil
	}

	result, err, _ := r.sf.Do(catalogID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cat, ok := r.fromCache(ctx, catalogID); ok {
			return cat, nil
		}

		cat, err := r.loader.LoadCatalog(ctx, catalogID)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(cat.Document())
		if err != nil {
			return nil, err
		}
		if err := r.client.Set(ctx, r.key(catalogID), raw, r.ttlWithJitter()).Err(); err != nil {
			log.Warn().Err(err).Str("catalog", catalogID).Msg("catalog cache write failed")
		}
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*catalog.Catalog), nil
}

func (r *CatalogRepository) fromCache(ctx context.Context, catalogID string) (*catalog.Catalog, bool) {
	raw, err := r.client.Get(ctx, r.key(catalogID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("catalog", catalogID).Msg("catalog cache read failed")
		}
		return nil, false
	}
	var doc catalog.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	cat, err := catalog.FromDocument(doc)
	if err != nil {
		log.Warn().Err(err).Str("catalog", catalogID).Msg("cached catalog rejected")
		return nil, false
	}
	return cat, true
}

// Invalidate drops the cached document so the next read reloads it.
func (r *CatalogRepository) Invalidate(ctx context.Context, catalogID string) error {
	return r.client.Del(ctx, r.key(catalogID)).Err()
}

func (r *CatalogRepository) key(catalogID string) string {
	return "trail:catalog:" + catalogID
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
