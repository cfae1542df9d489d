package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/idempotency"
)

type RouterOptions struct {
	CORSAllowOrigins []string
	RequestTimeout   time.Duration

	// Admin routes answer 503 while AdminVerifier is nil.
	AdminVerifier *auth.Verifier

	// Idempotency wraps POST /api/cart when set.
	Idempotency func(http.Handler) http.Handler
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(CORS(opts.CORSAllowOrigins))
	r.Use(CorrelationID)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", h.Health)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/featured", h.FeaturedProducts)
		r.Get("/top-rated", h.TopRatedProducts)
		r.Get("/search", h.SearchProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(opts.AdminVerifier))
			r.Put("/batch", h.BatchUpdateProducts)
			r.Put("/{id}", h.UpdateProduct)
		})
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(Session)

		r.Get("/", h.GetCart)
		r.Get("/total", h.GetCartTotal)
		r.Delete("/", h.ClearCart)
		r.Put("/{productId}", h.UpdateCartItem)
		r.Delete("/{productId}", h.RemoveFromCart)

		if opts.Idempotency != nil {
			r.With(opts.Idempotency).Post("/", h.AddToCart)
		} else {
			r.Post("/", h.AddToCart)
		}
	})

	return r
}

// CartAddIdempotencyKey scopes a client key to the caller's cart session.
func CartAddIdempotencyKey(r *http.Request, clientKey string) string {
	return fmt.Sprintf(idempotency.KeyCartAdd, SessionID(r.Context()), clientKey)
}
