package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

type ProductService interface {
	GetAll(ctx context.Context, isAI bool) ([]catalog.Product, error)
	GetByID(ctx context.Context, id int64, isAI bool) (catalog.Product, error)
	GetFeatured(ctx context.Context, isAI bool) ([]catalog.Product, error)
	GetTopRated(ctx context.Context, isAI bool) ([]catalog.Product, error)
	GetByCategory(ctx context.Context, category string, isAI bool) ([]catalog.Product, error)
	GetByTags(ctx context.Context, tags []string, isAI bool) ([]catalog.Product, error)
	Search(ctx context.Context, query string, isAI bool) ([]catalog.Product, error)
	UpdateProduct(ctx context.Context, id int64, data catalog.UpdateProductData) (catalog.Product, error)
	BatchUpdateProducts(ctx context.Context, items []catalog.BatchUpdateItem) ([]catalog.Product, error)
}

type CartService interface {
	GetCart(ctx context.Context, sessionID string) (cart.Cart, error)
	AddToCart(ctx context.Context, sessionID string, productID int64, quantity int) (cart.Item, error)
	UpdateCartItem(ctx context.Context, sessionID string, productID int64, quantity int) (cart.Item, error)
	RemoveFromCart(ctx context.Context, sessionID string, productID int64) error
	ClearCart(ctx context.Context, sessionID string) error
}

type Handler struct {
	products ProductService
	carts    CartService
	logger   *zap.Logger
}

func NewHandler(products ProductService, carts CartService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{products: products, carts: carts, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
