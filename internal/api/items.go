package api

import (
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/medrep/promostock/internal/imaging"
	"github.com/medrep/promostock/internal/model"
	"github.com/medrep/promostock/internal/store"
)

// ItemsHandler handles stock item endpoints.
type ItemsHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

type itemRequest struct {
	Name         string `json:"name"`
	CategoryID   int64  `json:"category_id"`
	SpecialtyID  *int64 `json:"specialty_id,omitempty"`
	Quantity     int    `json:"quantity"`
	PriceCents   int64  `json:"price_cents"`
	Expiry       string `json:"expiry,omitempty"`
	UniqueNumber string `json:"unique_number,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type adjustQuantityRequest struct {
	Delta int `json:"delta"`
}

// itemResponse pairs an item with its derived stock figures. The
// central availability is always computed from allocations, never read
// from a stored column.
type itemResponse struct {
	model.StockItem
	CentralAvailable int `json:"central_available"`
	AllocatedTotal   int `json:"allocated_total"`
}

func (h *ItemsHandler) withStockFigures(r *http.Request, item *model.StockItem) (*itemResponse, error) {
	available, err := store.CentralAvailable(r.Context(), h.DB, item.ID)
	if err != nil {
		return nil, err
	}
	allocated, err := store.AllocatedTotal(r.Context(), h.DB, item.ID)
	if err != nil {
		return nil, err
	}
	return &itemResponse{StockItem: *item, CentralAvailable: available, AllocatedTotal: allocated}, nil
}

func (r *itemRequest) params() (store.ItemParams, error) {
	p := store.ItemParams{
		Name:         r.Name,
		CategoryID:   r.CategoryID,
		SpecialtyID:  r.SpecialtyID,
		Quantity:     r.Quantity,
		PriceCents:   r.PriceCents,
		UniqueNumber: r.UniqueNumber,
		Notes:        r.Notes,
	}
	if r.Expiry != "" {
		expiry, err := time.Parse("2006-01-02", r.Expiry)
		if err != nil {
			return p, err
		}
		p.Expiry = &expiry
	}
	return p, nil
}

// List handles GET /api/items. Accepts an optional category filter.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryID(r, "category")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, categoryID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	resp := make([]itemResponse, 0, len(items))
	for i := range items {
		item, err := h.withStockFigures(r, &items[i])
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to compute stock figures")
			return
		}
		resp = append(resp, *item)
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	resp, err := h.withStockFigures(r, item)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to compute stock figures")
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.CategoryID <= 0 {
		jsonError(w, http.StatusBadRequest, "name and category_id required")
		return
	}
	if req.Quantity < 0 {
		jsonError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, req.CategoryID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if category == nil || category.DeletedAt != nil {
		jsonError(w, http.StatusBadRequest, "unknown category")
		return
	}

	params, err := req.params()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid expiry date, want YYYY-MM-DD")
		return
	}
	claims := GetClaims(r.Context())
	params.CreatedBy = &claims.UserID

	item, err := store.CreateItem(r.Context(), h.DB, params)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.Log.Info("item created",
		zap.Int64("item", item.ID),
		zap.String("name", item.Name),
		zap.String("by", claims.Username))
	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/items/{id}. The nominal quantity is not
// editable here; AdjustQuantity keeps the allocation invariant.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.CategoryID <= 0 {
		jsonError(w, http.StatusBadRequest, "name and category_id required")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	params, err := req.params()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid expiry date, want YYYY-MM-DD")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, id, params); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// AdjustQuantity handles POST /api/items/{id}/quantity. Positive deltas
// record newly received stock, negative ones permanent removal.
func (h *ItemsHandler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req adjustQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := store.AdjustItemQuantity(r.Context(), h.DB, id, req.Delta); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.Log.Info("item quantity adjusted",
		zap.Int64("item", id),
		zap.Int("delta", req.Delta),
		zap.String("by", GetClaims(r.Context()).Username))

	updated, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp, err := h.withStockFigures(r, updated)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to compute stock figures")
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/items/{id}. Items with outstanding
// allocations cannot be removed.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	allocated, err := store.AllocatedTotal(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if allocated > 0 {
		jsonError(w, http.StatusConflict, "item still has units allocated to users")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.Log.Info("item deleted", zap.Int64("item", id), zap.String("name", item.Name))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image. The upload is sniffed,
// downscaled and normalized to JPEG before storage.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	photo, err := imaging.Prepare(r.Body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, photo.Data, photo.MIME); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image stored"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if len(data) == 0 {
		jsonError(w, http.StatusNotFound, "item has no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}
