package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"escape-trail/internal/catalog"
	"escape-trail/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader loads catalog JSONB from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context, catalogID string) (*catalog.Catalog, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM catalogs WHERE id=$1`, catalogID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, catalogID)
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	var doc catalog.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if doc.ID == "" {
		doc.ID = catalogID
	}
	return catalog.FromDocument(doc)
}
