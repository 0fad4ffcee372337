package postgres

import (
	"context"
	"time"

	"escape-trail/internal/catalog"
	"github.com/uptrace/bun"
)

type catalogRow struct {
	bun.BaseModel `bun:"table:catalogs"`

	ID        string           `bun:"id,pk"`
	Data      catalog.Document `bun:"data,type:jsonb"`
	UpdatedAt time.Time        `bun:"updated_at,notnull"`
}

// CatalogStore writes catalogs through bun; reads go through CatalogLoader.
type CatalogStore struct {
	db *bun.DB
}

func NewCatalogStore(db *bun.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Save upserts a validated catalog.
func (s *CatalogStore) Save(ctx context.Context, cat *catalog.Catalog) error {
	row := catalogRow{ID: cat.ID(), Data: cat.Document(), UpdatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// IDs lists stored catalog ids in order.
func (s *CatalogStore) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().Model((*catalogRow)(nil)).Column("id").Order("id ASC").Scan(ctx, &ids)
	return ids, err
}
