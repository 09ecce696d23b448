// Package workflow implements the request approval state machine:
// pending -> pending_secondary -> approved/denied, driving the transfer
// engine on approval.
package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/medrep/promostock/internal/engine"
	"github.com/medrep/promostock/internal/model"
	"github.com/medrep/promostock/internal/store"
)

var (
	// ErrRequestNotFound means the request does not exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrForbidden means the actor is neither the current assignee nor
	// holds a role allowed to act on any request.
	ErrForbidden = errors.New("not authorized to act on this request")
)

// InvalidTransitionError is returned when an action is not valid for
// the request's current type or status.
type InvalidTransitionError struct {
	Action string
	Type   string
	Status string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s request in status %s", e.Action, e.Type, e.Status)
}

// LineFailure records one request line whose transfer failed during a
// best-effort approval.
type LineFailure struct {
	Item model.RequestItem `json:"item"`
	Err  error             `json:"-"`

	// Reason is the failure message, serialized for API consumers.
	Reason string `json:"reason"`
}

// ApprovalOutcome is the explicit result of approving a request:
// which lines produced movements and which failed. The request is
// marked approved even when some lines failed; callers see the partial
// failure here instead of having to parse logs.
type ApprovalOutcome struct {
	Request   *model.InventoryRequest `json:"request"`
	Movements []model.StockMovement   `json:"movements"`
	Failures  []LineFailure           `json:"failures,omitempty"`
}

// Service runs workflow transitions against the database.
type Service struct {
	db  *sql.DB
	log *zap.Logger
}

// NewService creates a workflow service. A nil logger disables logging.
func NewService(db *sql.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log}
}

// Create validates and persists a new request in the pending state.
func (s *Service) Create(ctx context.Context, p store.RequestParams) (*model.InventoryRequest, error) {
	if !model.ValidRequestType(p.Type) {
		return nil, fmt.Errorf("invalid request type %q", p.Type)
	}
	if len(p.Items) == 0 {
		return nil, fmt.Errorf("request needs at least one line item")
	}
	for _, item := range p.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("line item quantity must be positive")
		}
		if item.StockItemID == nil && item.ItemName == "" {
			return nil, fmt.Errorf("line item needs a stock item reference or a name")
		}
	}
	if p.Type == model.RequestTypeInventoryShare {
		if p.ShareFromUserID == nil {
			return nil, fmt.Errorf("inventory_share request needs a sharing user")
		}
		if p.FinalAssignee == nil {
			return nil, fmt.Errorf("inventory_share request needs a final assignee")
		}
	}

	request, err := store.CreateRequest(ctx, s.db, p)
	if err != nil {
		return nil, err
	}

	s.log.Info("request created",
		zap.Int64("request_id", request.ID),
		zap.String("reference", request.Reference),
		zap.String("type", request.Type),
		zap.Int64("requested_by", request.RequestedBy))
	return request, nil
}

// Approve executes a single-stage approval (prepare_order or
// receive_inventory): each resolved line item moves stock from the
// central pool to the requester. Lines that cannot transfer are
// recorded in the outcome and skipped; the request is still approved.
func (s *Service) Approve(ctx context.Context, requestID, actorID int64, notes string) (*ApprovalOutcome, error) {
	request, err := s.loadForAction(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	if request.Type == model.RequestTypeInventoryShare {
		return nil, &InvalidTransitionError{Action: "approve", Type: request.Type, Status: request.Status}
	}
	if request.Status != model.RequestStatusPending {
		return nil, &InvalidTransitionError{Action: "approve", Type: request.Type, Status: request.Status}
	}

	outcome := s.transferLines(ctx, request, model.CentralPool(), actorID, true)

	if err := store.CloseRequest(ctx, s.db, request.ID, model.RequestStatusApproved, notes); err != nil {
		return nil, err
	}

	outcome.Request, err = store.GetRequest(ctx, s.db, request.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("request approved",
		zap.Int64("request_id", request.ID),
		zap.Int64("actor", actorID),
		zap.Int("transferred", len(outcome.Movements)),
		zap.Int("failed", len(outcome.Failures)))
	return outcome, nil
}

// ApproveAndForward handles the first stage of an inventory_share
// request: no transfer happens, the request moves to pending_secondary
// and is reassigned to the final assignee.
func (s *Service) ApproveAndForward(ctx context.Context, requestID, actorID int64, notes string) (*model.InventoryRequest, error) {
	request, err := s.loadForAction(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	if request.Type != model.RequestTypeInventoryShare || request.Status != model.RequestStatusPending {
		return nil, &InvalidTransitionError{Action: "forward", Type: request.Type, Status: request.Status}
	}
	if request.FinalAssignee == nil {
		return nil, &InvalidTransitionError{Action: "forward", Type: request.Type, Status: request.Status}
	}

	if err := store.ForwardRequest(ctx, s.db, request.ID, *request.FinalAssignee, notes); err != nil {
		return nil, err
	}

	s.log.Info("request forwarded for final approval",
		zap.Int64("request_id", request.ID),
		zap.Int64("actor", actorID),
		zap.Int64("final_assignee", *request.FinalAssignee))
	return store.GetRequest(ctx, s.db, request.ID)
}

// FinalApprove handles the second stage of an inventory_share request,
// valid only from pending_secondary: each line moves stock from the
// sharing user's allocation to the requester. There is no central-pool
// fallback; lines the sharer cannot cover fail and are recorded.
func (s *Service) FinalApprove(ctx context.Context, requestID, actorID int64, notes string) (*ApprovalOutcome, error) {
	request, err := s.loadForAction(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	if request.Type != model.RequestTypeInventoryShare || request.Status != model.RequestStatusPendingSecondary {
		return nil, &InvalidTransitionError{Action: "final-approve", Type: request.Type, Status: request.Status}
	}

	source := model.CentralPool()
	if request.ShareFromUserID != nil {
		source = model.UserParty(*request.ShareFromUserID)
	}

	outcome := s.transferLines(ctx, request, source, actorID, false)

	if err := store.CloseRequest(ctx, s.db, request.ID, model.RequestStatusApproved, notes); err != nil {
		return nil, err
	}

	outcome.Request, err = store.GetRequest(ctx, s.db, request.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("share request approved",
		zap.Int64("request_id", request.ID),
		zap.Int64("actor", actorID),
		zap.Int("transferred", len(outcome.Movements)),
		zap.Int("failed", len(outcome.Failures)))
	return outcome, nil
}

// Deny rejects a request from pending or pending_secondary. No transfer
// occurs.
func (s *Service) Deny(ctx context.Context, requestID, actorID int64, notes string) (*model.InventoryRequest, error) {
	request, err := s.loadForAction(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	if request.Status != model.RequestStatusPending && request.Status != model.RequestStatusPendingSecondary {
		return nil, &InvalidTransitionError{Action: "deny", Type: request.Type, Status: request.Status}
	}

	if err := store.CloseRequest(ctx, s.db, request.ID, model.RequestStatusDenied, notes); err != nil {
		return nil, err
	}

	s.log.Info("request denied",
		zap.Int64("request_id", request.ID),
		zap.Int64("actor", actorID))
	return store.GetRequest(ctx, s.db, request.ID)
}

// MarkCompleted flips an approved request to completed. Timestamp only;
// no transfer logic runs.
func (s *Service) MarkCompleted(ctx context.Context, requestID, actorID int64) (*model.InventoryRequest, error) {
	request, err := s.loadForAction(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	if request.Status != model.RequestStatusApproved {
		return nil, &InvalidTransitionError{Action: "complete", Type: request.Type, Status: request.Status}
	}

	if err := store.MarkRequestCompleted(ctx, s.db, request.ID); err != nil {
		return nil, err
	}
	return store.GetRequest(ctx, s.db, request.ID)
}

// loadForAction loads a request and checks the authorization guard:
// the actor must be the current assignee or hold a role with approval
// override. Unauthorized attempts cause no state change.
func (s *Service) loadForAction(ctx context.Context, requestID, actorID int64) (*model.InventoryRequest, error) {
	request, err := store.GetRequest(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrRequestNotFound
	}

	actor, err := store.GetUser(ctx, s.db, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.DeletedAt != nil {
		return nil, ErrForbidden
	}

	if request.AssignedTo != nil && *request.AssignedTo == actorID {
		return request, nil
	}
	if actor.Role.Permissions().OverrideApproval {
		return request, nil
	}
	return nil, ErrForbidden
}

// transferLines runs the per-line approval loop. Each line's transfer
// is its own transaction; a failed line is recorded and the loop
// continues (best-effort policy). When centralFallback is set, a line
// that the pool cannot cover falls back to a direct grant so imprecise
// central bookkeeping does not hard-fail the approval.
func (s *Service) transferLines(ctx context.Context, request *model.InventoryRequest, from model.Party, actorID int64, centralFallback bool) *ApprovalOutcome {
	outcome := &ApprovalOutcome{}

	for _, item := range request.Items {
		// Free-text lines have no catalog reference to transfer.
		if item.StockItemID == nil || item.Quantity <= 0 {
			continue
		}

		note := fmt.Sprintf("request %s", request.Reference)
		movement, err := engine.Execute(ctx, s.db, *item.StockItemID, item.Quantity, from, model.UserParty(request.RequestedBy), actorID, note)

		var central *engine.InsufficientCentralStockError
		if centralFallback && errors.As(err, &central) {
			s.log.Warn("central pool short, granting directly",
				zap.Int64("request_id", request.ID),
				zap.Int64("stock_item_id", *item.StockItemID),
				zap.Int("available", central.Available),
				zap.Int("requested", central.Requested))
			movement, err = engine.GrantFromCentral(ctx, s.db, *item.StockItemID, item.Quantity, request.RequestedBy, actorID, note)
		}

		if err != nil {
			s.log.Error("line item transfer failed",
				zap.Int64("request_id", request.ID),
				zap.Int64("stock_item_id", *item.StockItemID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			outcome.Failures = append(outcome.Failures, LineFailure{
				Item:   item,
				Err:    err,
				Reason: err.Error(),
			})
			continue
		}

		outcome.Movements = append(outcome.Movements, *movement)
	}

	return outcome
}
