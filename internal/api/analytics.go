package api

import (
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/medrep/promostock/internal/scheduler"
	"github.com/medrep/promostock/internal/store"
)

// AnalyticsHandler handles the dashboard summary endpoints.
type AnalyticsHandler struct {
	DB  *sql.DB
	Log *zap.Logger

	// Defaults for the window parameters, taken from configuration.
	ExpiryWindowDays  int
	LowStockThreshold int
}

// ItemSummaries handles GET /api/analytics/items.
func (h *AnalyticsHandler) ItemSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := store.ItemSummaries(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to summarize items")
		return
	}
	jsonResponse(w, http.StatusOK, summaries)
}

// UserHoldings handles GET /api/analytics/holdings.
func (h *AnalyticsHandler) UserHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := store.UserHoldingSummaries(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to summarize holdings")
		return
	}
	jsonResponse(w, http.StatusOK, holdings)
}

// MovementVolumes handles GET /api/analytics/movements?days=N.
func (h *AnalyticsHandler) MovementVolumes(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 30)
	if err != nil || days <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid days")
		return
	}

	since := time.Now().AddDate(0, 0, -days)
	volumes, err := store.MovementVolumes(r.Context(), h.DB, since)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to summarize movements")
		return
	}
	jsonResponse(w, http.StatusOK, volumes)
}

// Expiring handles GET /api/analytics/expiring?days=N.
func (h *AnalyticsHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", h.ExpiryWindowDays)
	if err != nil || days <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid days")
		return
	}

	items, err := store.ExpiringItems(r.Context(), h.DB, days)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list expiring items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// LowStock handles GET /api/analytics/low-stock?threshold=N, listing
// items whose derived central availability fell below the threshold.
func (h *AnalyticsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r, "threshold", h.LowStockThreshold)
	if err != nil || threshold < 0 {
		jsonError(w, http.StatusBadRequest, "invalid threshold")
		return
	}

	items, err := store.LowCentralStock(r.Context(), h.DB, threshold)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list low stock")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Integrity handles GET /api/analytics/integrity, reporting items whose
// allocations exceed the nominal total. Over-allocation can happen when
// an approval grants stock past the central pool; it is surfaced here
// rather than silently corrected.
func (h *AnalyticsHandler) Integrity(w http.ResponseWriter, r *http.Request) {
	itemIDs, err := store.CheckAllocationIntegrity(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to check integrity")
		return
	}
	if len(itemIDs) > 0 {
		h.Log.Warn("over-allocated items detected", zap.Int64s("items", itemIDs))
	}

	lastScan, err := store.GetSetting(r.Context(), h.DB, scheduler.LastScanKey)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to check integrity")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"over_allocated_items": itemIDs,
		"ok":                   len(itemIDs) == 0,
		"last_scan":            lastScan,
	})
}
