package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

// ListProducts serves GET /api/products. category wins over tags when both are set.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	isAI := isAIParam(r)

	var (
		products []catalog.Product
		err      error
	)
	switch {
	case strings.TrimSpace(q.Get("category")) != "":
		products, err = h.products.GetByCategory(r.Context(), strings.TrimSpace(q.Get("category")), isAI)
	case len(tagsParam(r)) > 0:
		products, err = h.products.GetByTags(r.Context(), tagsParam(r), isAI)
	default:
		products, err = h.products.GetAll(r.Context(), isAI)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductDTOs(products), "")
}

func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.GetFeatured(r.Context(), isAIParam(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductDTOs(products), "")
}

func (h *Handler) TopRatedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.GetTopRated(r.Context(), isAIParam(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductDTOs(products), "")
}

func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeValidation(w, []fieldError{{Field: "q", Message: "Search query is required"}})
		return
	}

	products, err := h.products.Search(r.Context(), query, isAIParam(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductDTOs(products), "")
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.products.GetByID(r.Context(), id, isAIParam(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductDTO(p), "")
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r, "id")
	if !ok {
		return
	}

	var data catalog.UpdateProductData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeValidation(w, []fieldError{{Field: "body", Message: "Invalid JSON body"}})
		return
	}
	if errs := validateUpdateData("", data); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	p, err := h.products.UpdateProduct(r.Context(), id, data)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductDTO(p), "Product updated successfully")
}

type batchUpdateRequest struct {
	Updates []catalog.BatchUpdateItem `json:"updates"`
}

func (h *Handler) BatchUpdateProducts(w http.ResponseWriter, r *http.Request) {
	var req batchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidation(w, []fieldError{{Field: "body", Message: "Invalid JSON body"}})
		return
	}

	var errs []fieldError
	for i, item := range req.Updates {
		prefix := "updates[" + strconv.Itoa(i) + "]."
		if item.ID <= 0 {
			errs = append(errs, fieldError{Field: prefix + "id", Message: "Product ID must be a positive integer"})
		}
		errs = append(errs, validateUpdateData(prefix+"data.", item.Data)...)
	}
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	products, err := h.products.BatchUpdateProducts(r.Context(), req.Updates)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductDTOs(products), strconv.Itoa(len(products))+" products updated successfully")
}

// validateUpdateData covers what the JSON shape alone cannot; business rules
// such as the quantity and status pair are left to the service.
func validateUpdateData(prefix string, data catalog.UpdateProductData) []fieldError {
	var errs []fieldError
	if data.Image != nil && !validURL(*data.Image) {
		errs = append(errs, fieldError{Field: prefix + "image", Message: "Image must be a valid URL"})
	}
	if data.BackgroundImg != nil && *data.BackgroundImg != "" && !validURL(*data.BackgroundImg) {
		errs = append(errs, fieldError{Field: prefix + "backgroundImg", Message: "Background image must be a valid URL"})
	}
	if data.StockQuantity != nil && *data.StockQuantity < 0 {
		errs = append(errs, fieldError{Field: prefix + "stockQuantity", Message: "Stock quantity must be a non-negative integer"})
	}
	if data.StockStatus != nil && !data.StockStatus.Valid() {
		errs = append(errs, fieldError{Field: prefix + "stockStatus", Message: "Invalid stock status"})
	}
	return errs
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isAIParam(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("isAI"))
	return err == nil && v
}

// tagsParam accepts both ?tags=a,b and repeated ?tags=a&tags=b.
func tagsParam(r *http.Request) []string {
	var tags []string
	for _, raw := range r.URL.Query()["tags"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

func productIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeValidation(w, []fieldError{{Field: name, Message: "Product ID must be a positive integer"}})
		return 0, false
	}
	return id, true
}
