package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/model"
)

const catalogCacheTTL = 60 * time.Second

// CatalogService reads the product catalog with a redis cache in front
// of postgres. A nil redis client disables the cache.
type CatalogService struct {
	db  *sql.DB
	rdb *redis.Client
}

func NewCatalogService(db *sql.DB, rdb *redis.Client) *CatalogService {
	return &CatalogService{db: db, rdb: rdb}
}

func (s *CatalogService) List(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if s.cacheGet(ctx, "products:all", &products) {
		return products, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price, stock, created_at
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	s.cacheSet(ctx, "products:all", products)

	return products, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	if s.cacheGet(ctx, "product:"+id, &p) {
		return &p, nil
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, stock, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	s.cacheSet(ctx, "product:"+id, p)

	return &p, nil
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.rdb == nil {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("catalog cache read failed", "key", key, "error", err)
		}
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, value any) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, catalogCacheTTL).Err(); err != nil {
		slog.Warn("catalog cache write failed", "key", key, "error", err)
	}
}
