package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"furnishai-web/internal/models"
)

// ProductRepo reads the product catalogue from Postgres for deployments
// that load the catalogue dump into a products table instead of serving it
// from the backend.
type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

const listProductsQuery = `
	SELECT uniq_id, title, brand, price, primary_image, categories
	FROM products
	ORDER BY uniq_id
`

func (r *ProductRepo) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query products")
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan products")
	}
	return products, nil
}

func scanProduct(row pgx.CollectableRow) (models.Product, error) {
	var (
		id, title, brand, price, image, categories *string
	)
	if err := row.Scan(&id, &title, &brand, &price, &image, &categories); err != nil {
		return models.Product{}, err
	}
	return productFromColumns(id, title, brand, price, image, categories), nil
}

// productFromColumns mirrors what the backend's JSON would look like for
// the same row: NULL columns are absent and categories stay a string for
// the category extraction to interpret.
func productFromColumns(id, title, brand, price, image, categories *string) models.Product {
	p := models.Product{
		UniqID:       deref(id),
		Title:        deref(title),
		Brand:        deref(brand),
		Price:        deref(price),
		PrimaryImage: deref(image),
	}
	if categories != nil {
		raw, err := json.Marshal(*categories)
		if err == nil {
			p.Categories = raw
		}
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
