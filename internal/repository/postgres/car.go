package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/pkg/database"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
)

// CarBrandRepository implements repository.CarBrandRepository using PostgreSQL.
type CarBrandRepository struct {
	pool database.DBTX
}

// NewCarBrandRepository creates a new PostgreSQL-backed car brand repository.
func NewCarBrandRepository(pool database.DBTX) *CarBrandRepository {
	return &CarBrandRepository{pool: pool}
}

// Create inserts a new brand.
func (r *CarBrandRepository) Create(ctx context.Context, brand *domain.CarBrand) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO car_brands (id, name, created_at) VALUES ($1, $2, $3)`,
		brand.ID, brand.Name, brand.CreatedAt)
	if err != nil {
		return fmt.Errorf("create car brand: %w", err)
	}

	return nil
}

// GetByName retrieves a brand by name.
func (r *CarBrandRepository) GetByName(ctx context.Context, name string) (*domain.CarBrand, error) {
	var b domain.CarBrand
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM car_brands WHERE name = $1`, name).
		Scan(&b.ID, &b.Name, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get car brand by name: %w", err)
	}

	return &b, nil
}

// List returns all brands ordered by name.
func (r *CarBrandRepository) List(ctx context.Context) ([]domain.CarBrand, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM car_brands ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list car brands: %w", err)
	}
	defer rows.Close()

	var brands []domain.CarBrand
	for rows.Next() {
		var b domain.CarBrand
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan car brand row: %w", err)
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate car brand rows: %w", err)
	}

	if brands == nil {
		brands = []domain.CarBrand{}
	}

	return brands, nil
}

// CarModelRepository implements repository.CarModelRepository using PostgreSQL.
type CarModelRepository struct {
	pool database.DBTX
}

// NewCarModelRepository creates a new PostgreSQL-backed car model repository.
func NewCarModelRepository(pool database.DBTX) *CarModelRepository {
	return &CarModelRepository{pool: pool}
}

// Create inserts a new model.
func (r *CarModelRepository) Create(ctx context.Context, model *domain.CarModel) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO car_models (id, brand_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		model.ID, model.BrandID, model.Name, model.CreatedAt)
	if err != nil {
		return fmt.Errorf("create car model: %w", err)
	}

	return nil
}

// GetByID retrieves a model with its brand joined in.
func (r *CarModelRepository) GetByID(ctx context.Context, id string) (*domain.CarModel, error) {
	query := `
		SELECT m.id, m.brand_id, m.name, m.created_at, b.id, b.name, b.created_at
		FROM car_models m
		JOIN car_brands b ON b.id = m.brand_id
		WHERE m.id = $1`

	var m domain.CarModel
	var b domain.CarBrand
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.BrandID, &m.Name, &m.CreatedAt,
		&b.ID, &b.Name, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get car model by id: %w", err)
	}
	m.Brand = &b

	return &m, nil
}

// ListByBrand returns all models of a brand ordered by name.
func (r *CarModelRepository) ListByBrand(ctx context.Context, brandID string) ([]domain.CarModel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, brand_id, name, created_at FROM car_models WHERE brand_id = $1 ORDER BY name ASC`,
		brandID)
	if err != nil {
		return nil, fmt.Errorf("list car models by brand: %w", err)
	}
	defer rows.Close()

	var models []domain.CarModel
	for rows.Next() {
		var m domain.CarModel
		if err := rows.Scan(&m.ID, &m.BrandID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan car model row: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate car model rows: %w", err)
	}

	if models == nil {
		models = []domain.CarModel{}
	}

	return models, nil
}
