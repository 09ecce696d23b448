package api

import (
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/medrep/promostock/internal/engine"
	"github.com/medrep/promostock/internal/model"
	"github.com/medrep/promostock/internal/store"
)

// TransfersHandler handles direct stock transfers and movement history.
type TransfersHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// transferRequest describes a transfer between two parties. A nil user
// id on either side means the central pool.
type transferRequest struct {
	StockItemID int64  `json:"stock_item_id"`
	Quantity    int    `json:"quantity"`
	FromUserID  *int64 `json:"from_user_id"`
	ToUserID    *int64 `json:"to_user_id"`
	Notes       string `json:"notes,omitempty"`
}

func party(userID *int64) model.Party {
	if userID == nil {
		return model.CentralPool()
	}
	return model.UserParty(*userID)
}

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	movement, err := engine.Execute(r.Context(), h.DB,
		req.StockItemID, req.Quantity, party(req.FromUserID), party(req.ToUserID),
		claims.UserID, req.Notes)
	if err != nil {
		h.Log.Warn("transfer rejected",
			zap.Int64("item", req.StockItemID),
			zap.Int("quantity", req.Quantity),
			zap.String("by", claims.Username),
			zap.Error(err))
		jsonError(w, transferStatus(err), err.Error())
		return
	}

	h.Log.Info("stock transferred",
		zap.Int64("movement", movement.ID),
		zap.Int64("item", movement.StockItemID),
		zap.Int("quantity", movement.Quantity),
		zap.String("from", movement.From().String()),
		zap.String("to", movement.To().String()),
		zap.String("by", claims.Username))
	jsonResponse(w, http.StatusCreated, movement)
}

// transferStatus maps engine errors to HTTP status codes.
func transferStatus(err error) int {
	var central *engine.InsufficientCentralStockError
	var user *engine.InsufficientUserStockError
	switch {
	case errors.Is(err, engine.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidQuantity),
		errors.Is(err, engine.ErrSameParty),
		errors.As(err, &central),
		errors.As(err, &user):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ListMovements handles GET /api/movements with optional item and user
// filters.
func (h *TransfersHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	itemID, err := queryID(r, "item")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := queryID(r, "user")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	movements, err := store.ListMovements(r.Context(), h.DB, itemID, userID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list movements")
		return
	}
	jsonResponse(w, http.StatusOK, movements)
}

// ListAllocations handles GET /api/allocations with optional item and
// user filters. Medical reps and other non-analytics roles can still
// see their own holdings.
func (h *TransfersHandler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	itemID, err := queryID(r, "item")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := queryID(r, "user")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	if !claims.Role.Permissions().ViewAnalytics {
		userID = claims.UserID
	}

	allocations, err := store.ListAllocations(r.Context(), h.DB, itemID, userID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list allocations")
		return
	}
	jsonResponse(w, http.StatusOK, allocations)
}
