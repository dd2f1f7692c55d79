package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/internal/repository"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
)

// CarCatalogService manages the brand and model reference data.
type CarCatalogService struct {
	brandRepo repository.CarBrandRepository
	modelRepo repository.CarModelRepository
	logger    *slog.Logger
}

// NewCarCatalogService creates a new car catalog service.
func NewCarCatalogService(brandRepo repository.CarBrandRepository, modelRepo repository.CarModelRepository, logger *slog.Logger) *CarCatalogService {
	return &CarCatalogService{
		brandRepo: brandRepo,
		modelRepo: modelRepo,
		logger:    logger,
	}
}

// CreateBrand adds a new brand to the catalog.
func (s *CarCatalogService) CreateBrand(ctx context.Context, name string) (*domain.CarBrand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	brand := &domain.CarBrand{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.brandRepo.Create(ctx, brand); err != nil {
		return nil, fmt.Errorf("create car brand: %w", err)
	}

	s.logger.InfoContext(ctx, "car brand created",
		slog.String("brand_id", brand.ID),
		slog.String("name", brand.Name),
	)

	return brand, nil
}

// ListBrands returns every brand in the catalog.
func (s *CarCatalogService) ListBrands(ctx context.Context) ([]domain.CarBrand, error) {
	brands, err := s.brandRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list car brands: %w", err)
	}
	return brands, nil
}

// CreateModel adds a new model under a brand.
func (s *CarCatalogService) CreateModel(ctx context.Context, brandID, name string) (*domain.CarModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if brandID == "" {
		return nil, apperrors.InvalidInput("brand_id is required")
	}

	model := &domain.CarModel{
		ID:        uuid.New().String(),
		BrandID:   brandID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.modelRepo.Create(ctx, model); err != nil {
		return nil, fmt.Errorf("create car model: %w", err)
	}

	s.logger.InfoContext(ctx, "car model created",
		slog.String("model_id", model.ID),
		slog.String("brand_id", model.BrandID),
		slog.String("name", model.Name),
	)

	return model, nil
}

// ListModels returns every model of a brand.
func (s *CarCatalogService) ListModels(ctx context.Context, brandID string) ([]domain.CarModel, error) {
	models, err := s.modelRepo.ListByBrand(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("list car models: %w", err)
	}
	return models, nil
}

// GetModel retrieves a model with its brand.
func (s *CarCatalogService) GetModel(ctx context.Context, id string) (*domain.CarModel, error) {
	model, err := s.modelRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get car model: %w", err)
	}
	return model, nil
}
