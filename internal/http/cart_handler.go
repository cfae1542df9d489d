package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/cart"
)

type addToCartRequest struct {
	ProductID *int64 `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

type clearCartResult struct {
	Cleared                 bool    `json:"cleared"`
	RestoreFailedProductIDs []int64 `json:"restoreFailedProductIds,omitempty"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetCart(r.Context(), SessionID(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toCartDTO(c), "")
}

func (h *Handler) GetCartTotal(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetCart(r.Context(), SessionID(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, CartTotalDTO{Total: c.Total(), ItemCount: c.ItemCount()}, "")
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidation(w, []fieldError{{Field: "body", Message: "productId and quantity must be integers"}})
		return
	}

	var errs []fieldError
	if req.ProductID == nil || *req.ProductID <= 0 {
		errs = append(errs, fieldError{Field: "productId", Message: "Product ID must be a positive integer"})
	}
	if fe, ok := validateQuantityField(req.Quantity); !ok {
		errs = append(errs, fe)
	}
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	item, err := h.carts.AddToCart(r.Context(), SessionID(r.Context()), *req.ProductID, *req.Quantity)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toCartItemDTO(item), "Item added to cart")
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r, "productId")
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidation(w, []fieldError{{Field: "body", Message: "quantity must be an integer"}})
		return
	}
	if fe, ok := validateQuantityField(req.Quantity); !ok {
		writeValidation(w, []fieldError{fe})
		return
	}

	item, err := h.carts.UpdateCartItem(r.Context(), SessionID(r.Context()), productID, *req.Quantity)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toCartItemDTO(item), "Cart item updated")
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r, "productId")
	if !ok {
		return
	}

	if err := h.carts.RemoveFromCart(r.Context(), SessionID(r.Context()), productID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Item removed from cart")
}

// ClearCart reports success once the lines are gone, even if some stock could
// not be put back; those products are listed in the response.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(r.Context())
	err := h.carts.ClearCart(r.Context(), sessionID)

	var (
		comp    *cart.CompensationError
		partial *cart.PartialRestoreError
	)
	switch {
	case err == nil:
		writeSuccess(w, http.StatusOK, clearCartResult{Cleared: true}, "Cart cleared")
	case errors.As(err, &comp):
		h.writeDomainError(w, r, err)
	case errors.As(err, &partial):
		h.logger.Warn("cart cleared with unrestored stock",
			zap.String("session_id", sessionID),
			zap.Int64s("product_ids", partial.ProductIDs),
			zap.Error(partial.Err))
		writeSuccess(w, http.StatusOK, clearCartResult{Cleared: true, RestoreFailedProductIDs: partial.ProductIDs}, "Cart cleared")
	default:
		h.writeDomainError(w, r, err)
	}
}

func validateQuantityField(q *int) (fieldError, bool) {
	switch {
	case q == nil || *q < 1:
		return fieldError{Field: "quantity", Message: "Quantity must be a positive integer"}, false
	case *q > cart.MaxQuantityPerItem:
		return fieldError{Field: "quantity", Message: "Maximum quantity per item is 100"}, false
	}
	return fieldError{}, true
}
