package store

import (
	"context"
	"testing"

	"github.com/medrep/promostock/internal/db"
	"github.com/medrep/promostock/internal/model"
)

func TestCreateAndGetRequest(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	rep := seedUser(t, database, "rep", model.RoleMedicalRep)
	item := seedItem(t, database, "Sample Pack", 100)

	request, err := CreateRequest(ctx, database, RequestParams{
		Type:        model.RequestTypePrepareOrder,
		RequestedBy: rep.ID,
		Notes:       "for the cardiology conference",
		Items: []model.RequestItem{
			{StockItemID: &item.ID, Quantity: 20},
			{ItemName: "New Banner", Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if request.Status != model.RequestStatusPending {
		t.Errorf("expected pending, got %q", request.Status)
	}
	if request.Reference == "" {
		t.Error("expected a generated reference")
	}
	if len(request.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(request.Items))
	}
	if request.Items[0].StockItemID == nil || *request.Items[0].StockItemID != item.ID {
		t.Error("expected first line to reference the catalog item")
	}
	if request.Items[1].ItemName != "New Banner" {
		t.Errorf("expected free-text line, got %q", request.Items[1].ItemName)
	}
	if request.RequestedByName != "rep" {
		t.Errorf("expected joined requester name, got %q", request.RequestedByName)
	}
}

func TestGetRequestMissing(t *testing.T) {
	database := db.NewTestDB(t)

	request, err := GetRequest(context.Background(), database, 42)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if request != nil {
		t.Error("expected nil for missing request")
	}
}

func TestListRequestsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	rep := seedUser(t, database, "rep", model.RoleMedicalRep)
	other := seedUser(t, database, "other", model.RoleMedicalRep)
	keeper := seedUser(t, database, "keeper", model.RoleStockKeeper)

	line := []model.RequestItem{{ItemName: "Pens", Quantity: 1}}
	first, _ := CreateRequest(ctx, database, RequestParams{
		Type: model.RequestTypePrepareOrder, RequestedBy: rep.ID,
		AssignedTo: &keeper.ID, Items: line,
	})
	CreateRequest(ctx, database, RequestParams{
		Type: model.RequestTypeReceiveInventory, RequestedBy: other.ID, Items: line,
	})

	CloseRequest(ctx, database, first.ID, model.RequestStatusDenied, "")

	pending, _ := ListRequests(ctx, database, model.RequestStatusPending, 0, 0)
	if len(pending) != 1 {
		t.Errorf("expected 1 pending request, got %d", len(pending))
	}

	byRequester, _ := ListRequests(ctx, database, "", rep.ID, 0)
	if len(byRequester) != 1 || byRequester[0].ID != first.ID {
		t.Errorf("expected rep's request, got %+v", byRequester)
	}

	byAssignee, _ := ListRequests(ctx, database, "", 0, keeper.ID)
	if len(byAssignee) != 1 {
		t.Errorf("expected 1 request assigned to keeper, got %d", len(byAssignee))
	}
}

func TestCloseRequestKeepsExistingNotes(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	rep := seedUser(t, database, "rep", model.RoleMedicalRep)
	sharer := seedUser(t, database, "sharer", model.RoleMedicalRep)
	keeper := seedUser(t, database, "keeper", model.RoleStockKeeper)

	request, _ := CreateRequest(ctx, database, RequestParams{
		Type: model.RequestTypeInventoryShare, RequestedBy: rep.ID,
		ShareFromUserID: &sharer.ID, FinalAssignee: &sharer.ID,
		Items: []model.RequestItem{{ItemName: "Pens", Quantity: 1}},
	})

	ForwardRequest(ctx, database, request.ID, keeper.ID, "forwarded to keeper")

	// Closing without notes must not wipe the forwarding notes.
	CloseRequest(ctx, database, request.ID, model.RequestStatusApproved, "")

	got, _ := GetRequest(ctx, database, request.ID)
	if got.Status != model.RequestStatusApproved {
		t.Errorf("expected approved, got %q", got.Status)
	}
	if got.SecondaryNotes != "forwarded to keeper" {
		t.Errorf("expected forwarding notes preserved, got %q", got.SecondaryNotes)
	}
	if got.AssignedTo == nil || *got.AssignedTo != keeper.ID {
		t.Error("expected request reassigned to keeper")
	}
}

func TestMarkRequestCompleted(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	rep := seedUser(t, database, "rep", model.RoleMedicalRep)
	request, _ := CreateRequest(ctx, database, RequestParams{
		Type: model.RequestTypePrepareOrder, RequestedBy: rep.ID,
		Items: []model.RequestItem{{ItemName: "Pens", Quantity: 1}},
	})

	CloseRequest(ctx, database, request.ID, model.RequestStatusApproved, "ok")
	MarkRequestCompleted(ctx, database, request.ID)

	got, _ := GetRequest(ctx, database, request.ID)
	if got.Status != model.RequestStatusCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}
