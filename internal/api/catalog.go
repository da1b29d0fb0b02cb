package api

import (
	"net/http"
	"strings"

	"dinepos/m/domain"
	"dinepos/m/internal/repository"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categoryID, err := optionalID(r, "category_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	products, err := repository.NewCatalog(h.DB).Products(r.Context(), repository.ProductFilter{
		CategoryID: categoryID,
		ActiveOnly: q.Get("include_inactive") != "true",
		Search:     strings.TrimSpace(q.Get("q")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := repository.NewCatalog(h.DB).Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	p := domain.Product{Active: true}
	if err := decodeJSON(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if p.SellingPrice.IsNegative() {
		respondError(w, http.StatusBadRequest, "selling_price cannot be negative")
		return
	}
	if err := repository.NewCatalog(h.DB).CreateProduct(r.Context(), &p); err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}
