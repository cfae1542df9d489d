package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

const MaxBatchUpdate = 50

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetAll(ctx context.Context, isAI bool) ([]Product, error) {
	return s.repo.List(ctx, Filter{IsAI: isAI})
}

func (s *Service) GetByID(ctx context.Context, id int64, isAI bool) (Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if p.IsAI != isAI {
		return Product{}, &ProductNotFoundError{ID: id}
	}
	return p, nil
}

func (s *Service) GetFeatured(ctx context.Context, isAI bool) ([]Product, error) {
	return s.repo.List(ctx, Filter{IsAI: isAI, Featured: true})
}

func (s *Service) GetTopRated(ctx context.Context, isAI bool) ([]Product, error) {
	return s.repo.List(ctx, Filter{IsAI: isAI, TopRated: true})
}

func (s *Service) GetByCategory(ctx context.Context, category string, isAI bool) ([]Product, error) {
	return s.repo.List(ctx, Filter{IsAI: isAI, Category: category})
}

func (s *Service) GetByTags(ctx context.Context, tags []string, isAI bool) ([]Product, error) {
	return s.repo.List(ctx, Filter{IsAI: isAI, Tags: tags})
}

// Search returns nothing for a blank query rather than the whole catalog.
func (s *Service) Search(ctx context.Context, query string, isAI bool) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Product{}, nil
	}
	return s.repo.List(ctx, Filter{IsAI: isAI, Query: query})
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, data UpdateProductData) (Product, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := ValidateUpdate(existing, data); err != nil {
		return Product{}, err
	}

	p, err := s.repo.Update(ctx, id, data)
	if err != nil {
		return Product{}, err
	}
	s.logger.Info("product updated", zap.Int64("product_id", id), zap.String("stock_status", string(p.StockStatus)))
	return p, nil
}

func (s *Service) BatchUpdateProducts(ctx context.Context, items []BatchUpdateItem) ([]Product, error) {
	if len(items) == 0 {
		return nil, &InvalidProductDataError{Reason: "No updates provided"}
	}
	if len(items) > MaxBatchUpdate {
		return nil, &InvalidProductDataError{Reason: "Maximum 50 products can be updated at once"}
	}

	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			return nil, &InvalidProductDataError{Reason: "Duplicate product IDs found in batch update"}
		}
		seen[item.ID] = struct{}{}
	}

	for _, item := range items {
		existing, err := s.repo.FindByID(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if err := ValidateUpdate(existing, item.Data); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.BatchUpdate(ctx, items)
	if err != nil {
		var domainErr DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, &ProductUpdateError{Err: err}
	}
	s.logger.Info("products batch updated", zap.Int("count", len(updated)))
	return updated, nil
}

// ValidateUpdate checks an administrative edit against the product it applies to.
// A status supplied without a quantity is checked against the stored quantity.
func ValidateUpdate(existing Product, data UpdateProductData) error {
	if data.Price != nil && !data.Price.IsPositive() {
		return &InvalidProductDataError{Reason: "Price must be greater than 0"}
	}
	if data.Rating != nil && (*data.Rating < 0 || *data.Rating > MaxRating) {
		return &InvalidProductDataError{Reason: "Rating must be between 0 and 5"}
	}
	if data.StockQuantity != nil && *data.StockQuantity < 0 {
		return &InvalidProductDataError{Reason: "Stock quantity cannot be negative"}
	}
	if data.Name != nil && strings.TrimSpace(*data.Name) == "" {
		return &InvalidProductDataError{Reason: "Name cannot be empty"}
	}
	if data.StockStatus != nil && !data.StockStatus.Valid() {
		return &InvalidProductDataError{Reason: "Invalid stock status"}
	}

	if data.StockStatus != nil {
		quantity := existing.StockQuantity
		if data.StockQuantity != nil {
			quantity = *data.StockQuantity
		}
		return ValidateStockPair(quantity, *data.StockStatus)
	}
	return nil
}
