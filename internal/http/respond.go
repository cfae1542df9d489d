package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

type successResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, successResponse{Success: true, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message, Details: details}})
}

func writeValidation(w http.ResponseWriter, errs []fieldError) {
	writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", map[string]any{"errors": errs})
}

// writeDomainError maps errors coming out of the services. Anything that is not
// a domain error is logged and hidden behind a generic 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	// Stock and cart disagree; whatever domain error sits underneath is not the answer.
	var comp *cart.CompensationError
	if errors.As(err, &comp) {
		h.logger.Error("stock and cart diverged",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int64("product_id", comp.ProductID),
			zap.Int("delta", comp.Delta),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred", nil)
		return
	}

	var de catalog.DomainError
	if errors.As(err, &de) {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, catalog.ErrNotFound), errors.Is(err, cart.ErrItemNotFound):
			status = http.StatusNotFound
		case errors.Is(err, cart.ErrItemChanged):
			status = http.StatusConflict
		}
		writeError(w, status, de.Code(), de.Error(), nil)
		return
	}

	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred", nil)
}
