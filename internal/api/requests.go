package api

import (
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/medrep/promostock/internal/model"
	"github.com/medrep/promostock/internal/store"
	"github.com/medrep/promostock/internal/workflow"
)

// RequestsHandler handles the inventory request workflow endpoints.
type RequestsHandler struct {
	DB       *sql.DB
	Workflow *workflow.Service
	Log      *zap.Logger
}

type createRequestRequest struct {
	Type            string              `json:"type"`
	AssignedTo      *int64              `json:"assigned_to,omitempty"`
	FinalAssignee   *int64              `json:"final_assignee,omitempty"`
	ShareFromUserID *int64              `json:"share_from_user_id,omitempty"`
	ShareToUserID   *int64              `json:"share_to_user_id,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	FileURL         string              `json:"file_url,omitempty"`
	Items           []model.RequestItem `json:"items"`
}

type actionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// workflowStatus maps workflow errors to HTTP status codes.
func workflowStatus(err error) int {
	var transition *workflow.InvalidTransitionError
	switch {
	case errors.Is(err, workflow.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &transition):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// Create handles POST /api/requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	request, err := h.Workflow.Create(r.Context(), store.RequestParams{
		Type:            req.Type,
		RequestedBy:     claims.UserID,
		AssignedTo:      req.AssignedTo,
		FinalAssignee:   req.FinalAssignee,
		ShareFromUserID: req.ShareFromUserID,
		ShareToUserID:   req.ShareToUserID,
		Notes:           req.Notes,
		FileURL:         req.FileURL,
		Items:           req.Items,
	})
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusCreated, request)
}

// List handles GET /api/requests. Non-approvers only see their own
// requests; approvers can filter by status, requester and assignee.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	requestedBy, err := queryID(r, "requested_by")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	assignedTo, err := queryID(r, "assigned_to")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	if !claims.Role.Permissions().OverrideApproval {
		requestedBy = claims.UserID
		assignedTo = 0
	}

	requests, err := store.ListRequests(r.Context(), h.DB, status, requestedBy, assignedTo)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	jsonResponse(w, http.StatusOK, requests)
}

// Get handles GET /api/requests/{id}.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := store.GetRequest(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get request")
		return
	}
	if request == nil {
		jsonError(w, http.StatusNotFound, "request not found")
		return
	}

	claims := GetClaims(r.Context())
	if !claims.Role.Permissions().OverrideApproval && request.RequestedBy != claims.UserID {
		assigned := request.AssignedTo != nil && *request.AssignedTo == claims.UserID
		sharing := request.ShareFromUserID != nil && *request.ShareFromUserID == claims.UserID
		if !assigned && !sharing {
			jsonError(w, http.StatusForbidden, "not authorized to view this request")
			return
		}
	}
	jsonResponse(w, http.StatusOK, request)
}

// Approve handles POST /api/requests/{id}/approve: single-stage
// approval that moves each line from the central pool to the requester.
// The response lists the movements and any lines that failed.
func (h *RequestsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, notes, ok := h.actionInput(w, r)
	if !ok {
		return
	}

	outcome, err := h.Workflow.Approve(r.Context(), id, GetClaims(r.Context()).UserID, notes)
	if err != nil {
		jsonError(w, workflowStatus(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, outcome)
}

// Forward handles POST /api/requests/{id}/forward: the first stage of
// an inventory share, passing the request to its final assignee.
func (h *RequestsHandler) Forward(w http.ResponseWriter, r *http.Request) {
	id, notes, ok := h.actionInput(w, r)
	if !ok {
		return
	}

	request, err := h.Workflow.ApproveAndForward(r.Context(), id, GetClaims(r.Context()).UserID, notes)
	if err != nil {
		jsonError(w, workflowStatus(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, request)
}

// FinalApprove handles POST /api/requests/{id}/final-approve: the
// second stage of an inventory share, moving stock from the sharing
// user's holdings to the requester.
func (h *RequestsHandler) FinalApprove(w http.ResponseWriter, r *http.Request) {
	id, notes, ok := h.actionInput(w, r)
	if !ok {
		return
	}

	outcome, err := h.Workflow.FinalApprove(r.Context(), id, GetClaims(r.Context()).UserID, notes)
	if err != nil {
		jsonError(w, workflowStatus(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, outcome)
}

// Deny handles POST /api/requests/{id}/deny.
func (h *RequestsHandler) Deny(w http.ResponseWriter, r *http.Request) {
	id, notes, ok := h.actionInput(w, r)
	if !ok {
		return
	}

	request, err := h.Workflow.Deny(r.Context(), id, GetClaims(r.Context()).UserID, notes)
	if err != nil {
		jsonError(w, workflowStatus(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, request)
}

// Complete handles POST /api/requests/{id}/complete, recording that an
// approved order physically arrived.
func (h *RequestsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := h.Workflow.MarkCompleted(r.Context(), id, GetClaims(r.Context()).UserID)
	if err != nil {
		jsonError(w, workflowStatus(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, request)
}

// actionInput decodes the common path id + optional notes body of the
// workflow action endpoints. An empty body is fine.
func (h *RequestsHandler) actionInput(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return 0, "", false
	}

	var req actionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return 0, "", false
		}
	}
	return id, req.Notes, true
}
