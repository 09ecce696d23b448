package workflow

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/medrep/promostock/internal/db"
	"github.com/medrep/promostock/internal/model"
	"github.com/medrep/promostock/internal/store"
)

type fixture struct {
	db       *sql.DB
	svc      *Service
	keeper   int64 // stock keeper, default assignee
	rep      int64 // medical rep, requester
	sharer   int64 // medical rep holding stock to share
	marketer int64 // role without approval override
	itemID   int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	f := &fixture{db: database, svc: NewService(database, nil)}

	keeper, err := store.CreateUser(ctx, database, "keeper", "", "hash", model.RoleStockKeeper)
	if err != nil {
		t.Fatalf("creating keeper: %v", err)
	}
	f.keeper = keeper.ID

	rep, _ := store.CreateUser(ctx, database, "rep", "", "hash", model.RoleMedicalRep)
	f.rep = rep.ID
	sharer, _ := store.CreateUser(ctx, database, "sharer", "", "hash", model.RoleMedicalRep)
	f.sharer = sharer.ID
	marketer, _ := store.CreateUser(ctx, database, "marketer", "", "hash", model.RoleMarketer)
	f.marketer = marketer.ID

	category, _ := store.CreateCategory(ctx, database, "Giveaways")
	item, err := store.CreateItem(ctx, database, store.ItemParams{
		Name:       "Branded pens",
		CategoryID: category.ID,
		Quantity:   100,
	})
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}
	f.itemID = item.ID

	return f
}

func (f *fixture) newOrder(t *testing.T, quantity int) *model.InventoryRequest {
	t.Helper()
	request, err := f.svc.Create(context.Background(), store.RequestParams{
		Type:        model.RequestTypePrepareOrder,
		RequestedBy: f.rep,
		AssignedTo:  &f.keeper,
		Items: []model.RequestItem{
			{StockItemID: &f.itemID, Quantity: quantity},
		},
	})
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	return request
}

func (f *fixture) newShare(t *testing.T, quantity int) *model.InventoryRequest {
	t.Helper()
	request, err := f.svc.Create(context.Background(), store.RequestParams{
		Type:            model.RequestTypeInventoryShare,
		RequestedBy:     f.rep,
		AssignedTo:      &f.sharer,
		FinalAssignee:   &f.keeper,
		ShareFromUserID: &f.sharer,
		Items: []model.RequestItem{
			{StockItemID: &f.itemID, Quantity: quantity},
		},
	})
	if err != nil {
		t.Fatalf("creating share request: %v", err)
	}
	return request
}

func TestCreateStartsPending(t *testing.T) {
	f := setup(t)
	request := f.newOrder(t, 10)

	if request.Status != model.RequestStatusPending {
		t.Errorf("expected pending, got %s", request.Status)
	}
	if request.Reference == "" {
		t.Error("expected generated reference")
	}
	if len(request.Items) != 1 {
		t.Errorf("expected 1 line item, got %d", len(request.Items))
	}
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// No items.
	if _, err := f.svc.Create(ctx, store.RequestParams{
		Type:        model.RequestTypePrepareOrder,
		RequestedBy: f.rep,
	}); err == nil {
		t.Error("expected error for empty request")
	}

	// Line with neither reference nor name.
	if _, err := f.svc.Create(ctx, store.RequestParams{
		Type:        model.RequestTypePrepareOrder,
		RequestedBy: f.rep,
		Items:       []model.RequestItem{{Quantity: 5}},
	}); err == nil {
		t.Error("expected error for unreferenced line item")
	}

	// Share without final assignee.
	if _, err := f.svc.Create(ctx, store.RequestParams{
		Type:            model.RequestTypeInventoryShare,
		RequestedBy:     f.rep,
		ShareFromUserID: &f.sharer,
		Items:           []model.RequestItem{{StockItemID: &f.itemID, Quantity: 5}},
	}); err == nil {
		t.Error("expected error for share without final assignee")
	}
}

func TestApproveTransfersToRequester(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	request := f.newOrder(t, 30)

	outcome, err := f.svc.Approve(ctx, request.ID, f.keeper, "ok")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if outcome.Request.Status != model.RequestStatusApproved {
		t.Errorf("expected approved, got %s", outcome.Request.Status)
	}
	if outcome.Request.CompletedAt == nil {
		t.Error("expected completed_at stamped")
	}
	if len(outcome.Movements) != 1 || len(outcome.Failures) != 0 {
		t.Fatalf("expected 1 movement and no failures, got %d/%d", len(outcome.Movements), len(outcome.Failures))
	}
	if outcome.Movements[0].FromUserID != nil {
		t.Error("expected central source")
	}

	allocation, _ := store.GetAllocation(ctx, f.db, f.itemID, f.rep)
	if allocation == nil || allocation.Quantity != 30 {
		t.Errorf("expected requester to hold 30, got %v", allocation)
	}
}

func TestApproveFallsBackWhenCentralShort(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Item with only 5 nominal units; request 20.
	category, _ := store.CreateCategory(ctx, f.db, "Samples")
	item, _ := store.CreateItem(ctx, f.db, store.ItemParams{
		Name:       "Sample kit",
		CategoryID: category.ID,
		Quantity:   5,
	})

	request, err := f.svc.Create(ctx, store.RequestParams{
		Type:        model.RequestTypeReceiveInventory,
		RequestedBy: f.rep,
		AssignedTo:  &f.keeper,
		Items:       []model.RequestItem{{StockItemID: &item.ID, Quantity: 20}},
	})
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	outcome, err := f.svc.Approve(ctx, request.ID, f.keeper, "")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// The fallback still produces a movement with a central source.
	if len(outcome.Movements) != 1 || len(outcome.Failures) != 0 {
		t.Fatalf("expected fallback movement, got %d movements, %d failures", len(outcome.Movements), len(outcome.Failures))
	}
	if outcome.Movements[0].FromUserID != nil {
		t.Error("expected central source on fallback movement")
	}

	allocation, _ := store.GetAllocation(ctx, f.db, item.ID, f.rep)
	if allocation == nil || allocation.Quantity != 20 {
		t.Errorf("expected requester to hold 20, got %v", allocation)
	}
}

func TestApprovePartialFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Second line references a deleted item, so its transfer fails.
	category, _ := store.CreateCategory(ctx, f.db, "Samples")
	deleted, _ := store.CreateItem(ctx, f.db, store.ItemParams{
		Name:       "Retired flyer",
		CategoryID: category.ID,
		Quantity:   50,
	})
	store.DeleteItem(ctx, f.db, deleted.ID)

	request, err := f.svc.Create(ctx, store.RequestParams{
		Type:        model.RequestTypePrepareOrder,
		RequestedBy: f.rep,
		AssignedTo:  &f.keeper,
		Items: []model.RequestItem{
			{StockItemID: &f.itemID, Quantity: 10},
			{StockItemID: &deleted.ID, Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	movementsBefore, _ := store.CountMovements(ctx, f.db, 0)

	outcome, err := f.svc.Approve(ctx, request.ID, f.keeper, "")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// Still approved, with the failure surfaced in the outcome.
	if outcome.Request.Status != model.RequestStatusApproved {
		t.Errorf("expected approved, got %s", outcome.Request.Status)
	}
	if len(outcome.Movements) != 1 {
		t.Errorf("expected 1 movement, got %d", len(outcome.Movements))
	}
	if len(outcome.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(outcome.Failures))
	}
	if outcome.Failures[0].Reason == "" {
		t.Error("expected failure reason")
	}

	movementsAfter, _ := store.CountMovements(ctx, f.db, 0)
	if movementsAfter != movementsBefore+1 {
		t.Errorf("expected exactly one new movement, got %d", movementsAfter-movementsBefore)
	}
}

func TestApproveForbidden(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	request := f.newOrder(t, 10)

	_, err := f.svc.Approve(ctx, request.ID, f.marketer, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// No state change.
	got, _ := store.GetRequest(ctx, f.db, request.ID)
	if got.Status != model.RequestStatusPending {
		t.Errorf("expected still pending, got %s", got.Status)
	}
}

func TestApproveByElevatedRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	admin, _ := store.CreateUser(ctx, f.db, "admin", "", "hash", model.RoleAdmin)
	request := f.newOrder(t, 10)

	// Admin is not the assignee but holds approval override.
	outcome, err := f.svc.Approve(ctx, request.ID, admin.ID, "")
	if err != nil {
		t.Fatalf("Approve by admin: %v", err)
	}
	if outcome.Request.Status != model.RequestStatusApproved {
		t.Errorf("expected approved, got %s", outcome.Request.Status)
	}
}

func TestApproveShareRejected(t *testing.T) {
	f := setup(t)
	request := f.newShare(t, 10)

	_, err := f.svc.Approve(context.Background(), request.ID, f.sharer, "")
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestForwardShareRequest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	request := f.newShare(t, 10)

	movementsBefore, _ := store.CountMovements(ctx, f.db, 0)

	forwarded, err := f.svc.ApproveAndForward(ctx, request.ID, f.sharer, "please approve")
	if err != nil {
		t.Fatalf("ApproveAndForward: %v", err)
	}

	if forwarded.Status != model.RequestStatusPendingSecondary {
		t.Errorf("expected pending_secondary, got %s", forwarded.Status)
	}
	if forwarded.AssignedTo == nil || *forwarded.AssignedTo != f.keeper {
		t.Errorf("expected assignee %d, got %v", f.keeper, forwarded.AssignedTo)
	}
	if forwarded.SecondaryNotes != "please approve" {
		t.Errorf("expected secondary notes recorded, got %q", forwarded.SecondaryNotes)
	}

	// First-stage approval never transfers.
	movementsAfter, _ := store.CountMovements(ctx, f.db, 0)
	if movementsAfter != movementsBefore {
		t.Errorf("expected no movements, got %d new", movementsAfter-movementsBefore)
	}
}

func TestFinalApproveTransfersFromSharer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Sharer holds 40 units.
	if _, err := f.svc.Approve(ctx, f.newOrderFor(t, f.sharer, 40).ID, f.keeper, ""); err != nil {
		t.Fatalf("seeding sharer allocation: %v", err)
	}

	request := f.newShare(t, 15)
	if _, err := f.svc.ApproveAndForward(ctx, request.ID, f.sharer, ""); err != nil {
		t.Fatalf("ApproveAndForward: %v", err)
	}

	outcome, err := f.svc.FinalApprove(ctx, request.ID, f.keeper, "done")
	if err != nil {
		t.Fatalf("FinalApprove: %v", err)
	}

	if outcome.Request.Status != model.RequestStatusApproved {
		t.Errorf("expected approved, got %s", outcome.Request.Status)
	}
	if len(outcome.Movements) != 1 || len(outcome.Failures) != 0 {
		t.Fatalf("expected 1 movement, got %d/%d", len(outcome.Movements), len(outcome.Failures))
	}
	if outcome.Movements[0].FromUserID == nil || *outcome.Movements[0].FromUserID != f.sharer {
		t.Errorf("expected source %d, got %v", f.sharer, outcome.Movements[0].FromUserID)
	}

	sharerAllocation, _ := store.GetAllocation(ctx, f.db, f.itemID, f.sharer)
	if sharerAllocation == nil || sharerAllocation.Quantity != 25 {
		t.Errorf("expected sharer to hold 25, got %v", sharerAllocation)
	}
	repAllocation, _ := store.GetAllocation(ctx, f.db, f.itemID, f.rep)
	if repAllocation == nil || repAllocation.Quantity != 15 {
		t.Errorf("expected requester to hold 15, got %v", repAllocation)
	}
}

func TestFinalApproveInsufficientSharerStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Sharer holds nothing; the line fails but the request is approved.
	request := f.newShare(t, 15)
	if _, err := f.svc.ApproveAndForward(ctx, request.ID, f.sharer, ""); err != nil {
		t.Fatalf("ApproveAndForward: %v", err)
	}

	outcome, err := f.svc.FinalApprove(ctx, request.ID, f.keeper, "")
	if err != nil {
		t.Fatalf("FinalApprove: %v", err)
	}

	if outcome.Request.Status != model.RequestStatusApproved {
		t.Errorf("expected approved, got %s", outcome.Request.Status)
	}
	if len(outcome.Movements) != 0 || len(outcome.Failures) != 1 {
		t.Errorf("expected 0 movements and 1 failure, got %d/%d", len(outcome.Movements), len(outcome.Failures))
	}
}

func TestFinalApproveFromPendingRejected(t *testing.T) {
	f := setup(t)
	request := f.newShare(t, 5)

	_, err := f.svc.FinalApprove(context.Background(), request.ID, f.keeper, "")
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestDeny(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Deny from pending.
	request := f.newOrder(t, 10)
	denied, err := f.svc.Deny(ctx, request.ID, f.keeper, "out of budget")
	if err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if denied.Status != model.RequestStatusDenied {
		t.Errorf("expected denied, got %s", denied.Status)
	}
	if denied.CompletedAt == nil {
		t.Error("expected completed_at stamped")
	}

	// Deny from pending_secondary.
	share := f.newShare(t, 5)
	f.svc.ApproveAndForward(ctx, share.ID, f.sharer, "")
	denied, err = f.svc.Deny(ctx, share.ID, f.keeper, "no")
	if err != nil {
		t.Fatalf("Deny from pending_secondary: %v", err)
	}
	if denied.Status != model.RequestStatusDenied {
		t.Errorf("expected denied, got %s", denied.Status)
	}

	// Deny never moves stock.
	count, _ := store.CountMovements(ctx, f.db, 0)
	if count != 0 {
		t.Errorf("expected no movements, got %d", count)
	}

	// Denied is terminal.
	if _, err := f.svc.Deny(ctx, request.ID, f.keeper, ""); err == nil {
		t.Error("expected error denying a denied request")
	}
}

func TestMarkCompleted(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	request := f.newOrder(t, 10)

	// Not valid before approval.
	if _, err := f.svc.MarkCompleted(ctx, request.ID, f.keeper); err == nil {
		t.Error("expected error completing a pending request")
	}

	f.svc.Approve(ctx, request.ID, f.keeper, "")

	completed, err := f.svc.MarkCompleted(ctx, request.ID, f.keeper)
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if completed.Status != model.RequestStatusCompleted {
		t.Errorf("expected completed, got %s", completed.Status)
	}
}

func TestActionOnUnknownRequest(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Approve(context.Background(), 9999, f.keeper, "")
	if !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound, got %v", err)
	}
}

// newOrderFor creates and returns a pending prepare_order request for
// an arbitrary requester.
func (f *fixture) newOrderFor(t *testing.T, requestedBy int64, quantity int) *model.InventoryRequest {
	t.Helper()
	request, err := f.svc.Create(context.Background(), store.RequestParams{
		Type:        model.RequestTypePrepareOrder,
		RequestedBy: requestedBy,
		AssignedTo:  &f.keeper,
		Items: []model.RequestItem{
			{StockItemID: &f.itemID, Quantity: quantity},
		},
	})
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	return request
}
