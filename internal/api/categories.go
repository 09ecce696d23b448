package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/medrep/promostock/internal/store"
)

// CategoriesHandler handles category and specialty endpoints.
type CategoriesHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

type nameRequest struct {
	Name string `json:"name"`
}

// ListCategories handles GET /api/categories.
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	jsonResponse(w, http.StatusOK, categories)
}

// CreateCategory handles POST /api/categories.
func (h *CategoriesHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	h.Log.Info("category created", zap.String("name", category.Name))
	jsonResponse(w, http.StatusCreated, category)
}

// DeleteCategory handles DELETE /api/categories/{id}. Categories with
// items still assigned cannot be removed.
func (h *CategoriesHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if category == nil || category.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(items) > 0 {
		jsonError(w, http.StatusConflict, "category still has items")
		return
	}

	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

// ListSpecialties handles GET /api/specialties.
func (h *CategoriesHandler) ListSpecialties(w http.ResponseWriter, r *http.Request) {
	specialties, err := store.ListSpecialties(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list specialties")
		return
	}
	jsonResponse(w, http.StatusOK, specialties)
}

// CreateSpecialty handles POST /api/specialties.
func (h *CategoriesHandler) CreateSpecialty(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	specialty, err := store.CreateSpecialty(r.Context(), h.DB, req.Name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create specialty")
		return
	}
	jsonResponse(w, http.StatusCreated, specialty)
}
